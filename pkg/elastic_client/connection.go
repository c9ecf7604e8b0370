package elastic_client

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/util"
)

var ErrNotConfigured = errors.New("elasticsearch address not set")

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

type Config struct {
	Address  string
	Username string
	Password string
	Insecure bool

	FlushInterval time.Duration
	MaxRetries    int
}

func configFromEnvironment() Config {
	env := util.GetEnvironmentVariables()

	return Config{
		Address:       env["TRAVIGO_ELASTICSEARCH_ADDRESS"],
		Username:      env["TRAVIGO_ELASTICSEARCH_USERNAME"],
		Password:      env["TRAVIGO_ELASTICSEARCH_PASSWORD"],
		Insecure:      env["TRAVIGO_ELASTICSEARCH_INSECURE"] == "YES",
		FlushInterval: util.GetEnvironmentDuration(env, "TRAVIGO_ELASTICSEARCH_FLUSH_INTERVAL", 15*time.Second),
		MaxRetries:    5,
	}
}

// Connect sets up the shared client and bulk indexer from the environment. An unset address is only an
// error when required, otherwise event indexing is disabled.
func Connect(required bool) error {
	config := configFromEnvironment()

	if config.Address == "" {
		if required {
			return ErrNotConfigured
		}

		log.Info().Msg("Elasticsearch not configured, event indexing disabled")
		return nil
	}

	es, err := newClient(config)
	if err != nil {
		return err
	}

	if _, err := es.Info(); err != nil {
		return err
	}

	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: config.FlushInterval,
	})
	if err != nil {
		return err
	}

	Client = es
	bulkIndexer = indexer

	log.Info().Str("address", config.Address).Msg("Elasticsearch connected")

	return nil
}

func newClient(config Config) (*elasticsearch.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retryBackoff := backoff.NewExponentialBackOff()

	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{config.Address},
		Username:  config.Username,
		Password:  config.Password,
		Transport: transport,

		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		RetryBackoff: func(attempt int) time.Duration {
			if attempt == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: config.MaxRetries,
	})
}

// IndexRequest queues a document on the bulk indexer. It does nothing while indexing is disabled.
func IndexRequest(indexName string, document io.ReadSeeker) {
	if bulkIndexer == nil {
		return
	}

	item := esutil.BulkIndexerItem{
		Index:     indexName,
		Action:    "index",
		Body:      document,
		OnFailure: indexFailureLogger(indexName),
	}

	if err := bulkIndexer.Add(context.Background(), item); err != nil {
		log.Error().Err(err).Str("index", indexName).Msg("Failed to queue document")
	}
}

func indexFailureLogger(indexName string) func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem, error) {
	return func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		event := log.Error().Str("index", indexName)
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Str("type", res.Error.Type).Str("reason", res.Error.Reason)
		}

		event.Msg("Failed to index document")
	}
}

// Flush drains queued documents before shutdown
func Flush(ctx context.Context) {
	if bulkIndexer == nil {
		return
	}

	if err := bulkIndexer.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush Elasticsearch queue")
	}
}
