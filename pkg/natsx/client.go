package natsx

import (
	"errors"
	"os"

	"github.com/nats-io/nats.go"
)

// ErrNoURL is returned when neither an explicit url nor NATS_URL is set.
var ErrNoURL = errors.New("natsx: no NATS url configured")

// NewClient connects to the NATS server at url, falling back to the NATS_URL
// environment variable when url is empty. Without options the connection is
// named "sqlowl" and uses compression.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		return nil, ErrNoURL
	}
	if len(opts) == 0 {
		opts = append(opts, nats.Name("sqlowl"), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}
