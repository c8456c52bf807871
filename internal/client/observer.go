package client

import "github.com/kjstillabower/weather-lookup/internal/models"

// Observer receives the outcome of a fetch. Exactly one method is called per fetch,
// on the goroutine that ran the request; callers that need a specific goroutine
// must redispatch (see ResultChan).
type Observer interface {
	OnSuccess(snapshot models.WeatherSnapshot)
	OnFailure(err error)
}

// ObserverFuncs adapts a pair of functions to Observer. Nil functions are skipped.
type ObserverFuncs struct {
	Success func(models.WeatherSnapshot)
	Failure func(error)
}

func (o ObserverFuncs) OnSuccess(snapshot models.WeatherSnapshot) {
	if o.Success != nil {
		o.Success(snapshot)
	}
}

func (o ObserverFuncs) OnFailure(err error) {
	if o.Failure != nil {
		o.Failure(err)
	}
}

// Result is one fetch outcome as delivered through a ResultChan.
type Result struct {
	Snapshot models.WeatherSnapshot
	Err      error
}

// ResultChan is a channel-backed Observer. Sends block when the buffer is full,
// so the capacity must cover every fetch that may be outstanding when nobody reads.
type ResultChan chan Result

// NewResultChan returns a ResultChan buffered for n outstanding fetches.
func NewResultChan(n int) ResultChan {
	if n < 1 {
		n = 1
	}
	return make(ResultChan, n)
}

func (c ResultChan) OnSuccess(snapshot models.WeatherSnapshot) {
	c <- Result{Snapshot: snapshot}
}

func (c ResultChan) OnFailure(err error) {
	c <- Result{Err: err}
}
