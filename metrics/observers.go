package metrics

import "time"

func (r *Registry) ObservePass(d time.Duration) {
	r.passes.Inc()
	r.passDuration.Observe(d.Seconds())
}

func (r *Registry) ObserveItemFailure(kind string) {
	r.itemFailures.WithLabelValues(kind).Inc()
}

func (r *Registry) SetActiveStreams(n int) {
	r.streams.Set(float64(n))
}

func (r *Registry) ObservePush(pushType string) {
	r.pushes.WithLabelValues(pushType).Inc()
}

func (r *Registry) ObserveRoute(route string) {
	r.routes.WithLabelValues(route).Inc()
}

func (r *Registry) ObserveOrder(outcome string) {
	r.orders.WithLabelValues(outcome).Inc()
}
