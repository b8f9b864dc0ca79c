package manifest

import "errors"

var errNoResponses = errors.New("no responses configured")

// FakeResponse is one scripted transport reply.
type FakeResponse struct {
	Status int
	Body   []byte
	Err    error
}

// FakeTransport returns scripted responses and records requested URLs.
type FakeTransport struct {
	// Responses are consumed one per Get call; the last one repeats
	// when exhausted.
	Responses []FakeResponse

	// URLs records every requested URL.
	URLs []string

	index int
}

// NewFakeTransport creates a FakeTransport with the given responses.
func NewFakeTransport(responses ...FakeResponse) *FakeTransport {
	return &FakeTransport{Responses: responses}
}

// Get returns the next scripted response.
func (f *FakeTransport) Get(url string) (int, []byte, error) {
	f.URLs = append(f.URLs, url)
	if len(f.Responses) == 0 {
		return 0, nil, errNoResponses
	}
	r := f.Responses[f.index]
	if f.index < len(f.Responses)-1 {
		f.index++
	}
	return r.Status, r.Body, r.Err
}
