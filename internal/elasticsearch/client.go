package elasticsearch

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"elarocks/config"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
)

// NewTypedClient builds a typed client with basic auth. Client-side retries
// are disabled: a search is a single request and a failure ends the run.
func NewTypedClient(cfg config.ElasticsearchConfig) (*elasticsearch.TypedClient, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch configuration missing")
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, // #nosec G402 -- opt-in for self-signed clusters
		},
	}
	return elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    transport,
		DisableRetry: true,
	})
}

// VerifyConnection calls the Info API until it succeeds or maxElapsed passes.
func VerifyConnection(ctx context.Context, client *elasticsearch.TypedClient, maxElapsed time.Duration) error {
	operation := func() error {
		res, err := client.Info().Do(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Attempt failed: Elasticsearch Info() call")
			return err
		}
		log.Info().Str("cluster_name", res.ClusterName).Msg("Elasticsearch connection verified")
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 500 * time.Millisecond
	connectBackoff.MaxInterval = 5 * time.Second
	connectBackoff.MaxElapsedTime = maxElapsed

	log.Info().Dur("max_elapsed", maxElapsed).Msg("Verifying Elasticsearch connection...")
	return backoff.Retry(operation, backoff.WithContext(connectBackoff, ctx))
}
