package handles

// Config is the peer configuration accepted by Init. The endpoint is opaque
// to the handle: it is stored and reported but never dialed. A configuration
// is immutable once accepted.
type Config struct {
	Endpoint          string `json:"endpoint"`
	PanicOnDisconnect bool   `json:"panic_on_disconnect"`
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return ErrInvalidArgument
	}
	return nil
}
