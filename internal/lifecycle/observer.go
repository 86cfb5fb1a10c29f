package lifecycle

import "time"

// Observer 生命周期事件回调。回调可能在持锁时被调用，实现必须快速返回且不能回调 Manager。
type Observer interface {
	ObserveStateChange(name string, from, to State)
	ObserveConnectAttempt(name string, err error)
	ObserveProbe(name string, latency time.Duration, err error)
	ObserveRebuild(name string, err error)
	ObserveWait(name string, waited time.Duration, err error)
}

// NopObserver 忽略所有事件
type NopObserver struct{}

func (NopObserver) ObserveStateChange(string, State, State)   {}
func (NopObserver) ObserveConnectAttempt(string, error)       {}
func (NopObserver) ObserveProbe(string, time.Duration, error) {}
func (NopObserver) ObserveRebuild(string, error)              {}
func (NopObserver) ObserveWait(string, time.Duration, error)  {}

// Observers 将事件分发给多个 Observer
type Observers []Observer

func (os Observers) ObserveStateChange(name string, from, to State) {
	for _, o := range os {
		o.ObserveStateChange(name, from, to)
	}
}

func (os Observers) ObserveConnectAttempt(name string, err error) {
	for _, o := range os {
		o.ObserveConnectAttempt(name, err)
	}
}

func (os Observers) ObserveProbe(name string, latency time.Duration, err error) {
	for _, o := range os {
		o.ObserveProbe(name, latency, err)
	}
}

func (os Observers) ObserveRebuild(name string, err error) {
	for _, o := range os {
		o.ObserveRebuild(name, err)
	}
}

func (os Observers) ObserveWait(name string, waited time.Duration, err error) {
	for _, o := range os {
		o.ObserveWait(name, waited, err)
	}
}
