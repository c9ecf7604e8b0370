package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	networkrailcorpus "github.com/travigo/trainstatus/pkg/dataimporter/formats/networkrail-corpus"
)

const CorpusSource = "https://publicdatafeeds.networkrail.co.uk/ntrod/SupportingFileAuthenticate?type=CORPUS"

type Credentials struct {
	Username string
	Password string
}

// ImportCorpus loads a CORPUS extract from a local path or URL into the stations collection
func ImportCorpus(ctx context.Context, source string, credentials Credentials) error {
	startTime := time.Now()

	if isValidUrl(source) {
		tempFile, err := tempDownloadFile(ctx, source, credentials)
		if err != nil {
			return err
		}
		defer os.Remove(tempFile)

		source = tempFile
	}

	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	corpus := &networkrailcorpus.Corpus{}
	if err := corpus.ParseFile(file); err != nil {
		return err
	}

	written, err := corpus.Import(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("records", len(corpus.TiplocData)).
		Int("stations", written).
		Str("duration", time.Since(startTime).String()).
		Msg("Imported CORPUS")

	return nil
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}

	u, err := url.Parse(toTest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}

func tempDownloadFile(ctx context.Context, source string, credentials Credentials) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "curl/7.54.1")

	if credentials.Username != "" {
		req.SetBasicAuth(credentials.Username, credentials.Password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s returned %s", source, resp.Status)
	}

	tmpFile, err := os.CreateTemp(os.TempDir(), "trainstatus-data-importer-")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}
