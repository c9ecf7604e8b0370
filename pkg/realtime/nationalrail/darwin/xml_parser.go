package darwin

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"io"

	"golang.org/x/net/html/charset"
)

func ParseXMLFile(reader io.Reader) (PushPortData, error) {
	pushPortData := PushPortData{}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			// EOF means we're done.
			break
		} else if err != nil {
			return pushPortData, err
		}

		ty, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch ty.Name.Local {
		case "TS":
			var trainStatus TrainStatus
			if err = d.DecodeElement(&trainStatus, &ty); err != nil {
				return pushPortData, err
			}
			pushPortData.TrainStatuses = append(pushPortData.TrainStatuses, trainStatus)
		case "schedule":
			var schedule Schedule
			if err = d.DecodeElement(&schedule, &ty); err != nil {
				return pushPortData, err
			}
			pushPortData.Schedules = append(pushPortData.Schedules, schedule)
		}
	}

	return pushPortData, nil
}

// ParseMessage decodes a gzip compressed push port frame
func ParseMessage(body []byte) (PushPortData, error) {
	gzipDecoder, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return PushPortData{}, err
	}
	defer gzipDecoder.Close()

	return ParseXMLFile(gzipDecoder)
}
