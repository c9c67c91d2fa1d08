package handles

//go:generate stringer -type trigger -trimprefix trigger
type trigger int

const (
	triggerInit trigger = iota
	triggerStart
	triggerStop
	triggerDestroy
)
