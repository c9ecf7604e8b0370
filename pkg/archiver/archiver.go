package archiver

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/travigo/trainstatus/pkg/util"
	"github.com/ulikunitz/xz"
)

const archiveAttempts = 3

// Archiver rolls finished service days out of the live set. Trains from before today are bundled into a
// tar.xz and then flagged archived, after which they are read only.
type Archiver struct {
	Repository trainstore.Repository

	OutputDirectory string
	CloudUpload     bool
	CloudBucketName string

	Now func() time.Time
}

func (a *Archiver) Perform(ctx context.Context) (int, error) {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	today := util.ServiceDate(now)

	log.Info().Str("before", today).Msg("Archiving trains")

	trains, err := a.Repository.FindMany(ctx, &ctdf.TrainFilter{
		ServiceDateBefore: today,
		Archived:          ctdf.Bool(false),
	})
	if err != nil {
		return 0, err
	}

	if len(trains) == 0 {
		log.Info().Msg("No trains to archive")
		return 0, nil
	}

	bundleFilename := fmt.Sprintf("trains-%s.tar.xz", now.UTC().Format("20060102T150405Z"))
	if err := a.writeBundleFile(bundleFilename, trains, now); err != nil {
		return 0, err
	}

	log.Info().Int("recordCount", len(trains)).Str("bundle", bundleFilename).Msg("Archive bundle generation complete")

	if a.CloudUpload {
		if err := a.uploadToStorage(ctx, bundleFilename); err != nil {
			return 0, err
		}
	}

	archived := 0
	for _, train := range trains {
		if err := a.markArchived(ctx, train.PrimaryIdentifier); err != nil {
			log.Error().Err(err).Str("trainid", train.PrimaryIdentifier).Msg("Failed to mark train archived")
			continue
		}
		archived++
	}

	log.Info().Int("archived", archived).Msg("Archive complete")

	return archived, nil
}

// markArchived re-reads the train before flagging it so a late update is not overwritten
func (a *Archiver) markArchived(ctx context.Context, trainID string) error {
	var err error

	for attempt := 0; attempt < archiveAttempts; attempt++ {
		var train *ctdf.Train
		train, err = a.Repository.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: trainID})
		if err != nil {
			return err
		}

		if train.Archived {
			return nil
		}

		train.Archived = true
		train.TDActive = false

		_, err = a.Repository.Upsert(ctx, train)
		if err == nil || !errors.Is(err, trainstore.ErrVersionConflict) {
			return err
		}
	}

	return err
}

func (a *Archiver) writeBundleFile(filename string, trains []*ctdf.Train, now time.Time) error {
	bundleFile, err := os.Create(path.Join(a.OutputDirectory, filename))
	if err != nil {
		return err
	}
	defer bundleFile.Close()

	if err := WriteBundle(bundleFile, trains, now); err != nil {
		return err
	}

	return bundleFile.Close()
}

// WriteBundle writes one JSON document per train into an xz compressed tar
func WriteBundle(writer io.Writer, trains []*ctdf.Train, now time.Time) error {
	xzWriter, err := xz.NewWriter(writer)
	if err != nil {
		return err
	}
	tarWriter := tar.NewWriter(xzWriter)

	for _, train := range trains {
		trainJSON, err := json.Marshal(train)
		if err != nil {
			return err
		}

		filename := strings.ReplaceAll(fmt.Sprintf("%s/%s.json", train.ServiceDate, train.PrimaryIdentifier), ":", "_")

		err = tarWriter.WriteHeader(&tar.Header{
			Name:    filename,
			Mode:    0644,
			Size:    int64(len(trainJSON)),
			ModTime: now,
		})
		if err != nil {
			return err
		}

		if _, err := tarWriter.Write(trainJSON); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}

	return xzWriter.Close()
}

func (a *Archiver) uploadToStorage(ctx context.Context, filename string) error {
	fullBundlePath := path.Join(a.OutputDirectory, filename)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	object := client.Bucket(a.CloudBucketName).Object(filename)

	reader, err := os.Open(fullBundlePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer := object.NewWriter(ctx)

	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		return err
	}

	if err := writer.Close(); err != nil {
		return err
	}

	log.Info().Msgf("Written file %s to bucket %s", object.ObjectName(), object.BucketName())

	return nil
}
