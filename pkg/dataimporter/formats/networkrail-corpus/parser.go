package networkrailcorpus

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
)

// ParseFile reads a CORPUS extract, which Network Rail serves gzipped
func (c *Corpus) ParseFile(reader io.Reader) error {
	buffered := bufio.NewReader(reader)

	magic, err := buffered.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gzipReader, err := gzip.NewReader(buffered)
		if err != nil {
			return err
		}
		defer gzipReader.Close()

		return json.NewDecoder(gzipReader).Decode(c)
	}

	return json.NewDecoder(buffered).Decode(c)
}
