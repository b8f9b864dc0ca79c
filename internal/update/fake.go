package update

// FakeConnectivity is a settable Connectivity test double.
type FakeConnectivity struct {
	Connected bool
}

// IsConnected returns the scripted value.
func (f *FakeConnectivity) IsConnected() bool { return f.Connected }

// FakeApplier returns a scripted OTA result and records applied URLs.
type FakeApplier struct {
	// Result is returned by every Apply call.
	Result Result

	// URLs records every URL Apply was invoked with.
	URLs []string
}

// Apply records the URL and returns the scripted result.
func (f *FakeApplier) Apply(url string) Result {
	f.URLs = append(f.URLs, url)
	return f.Result
}
