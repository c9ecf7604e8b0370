package databaselookup

import (
	"context"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
)

func (s Source) TrainQuery(ctx context.Context, trainQuery query.Train) (*ctdf.Train, error) {
	return s.Repository.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: trainQuery.PrimaryIdentifier})
}

func (s Source) TrainByServiceQuery(ctx context.Context, trainQuery query.TrainByService) (*ctdf.Train, error) {
	return s.Repository.FindOne(ctx, &ctdf.TrainFilter{ServiceID: trainQuery.ServiceID})
}

func (s Source) TrainByHeadcodeQuery(ctx context.Context, trainQuery query.TrainByHeadcode) (*ctdf.Train, error) {
	return s.Repository.FindOne(ctx, &ctdf.TrainFilter{
		Headcode:    trainQuery.Headcode,
		ServiceDate: trainQuery.ServiceDate,
	})
}

func (s Source) TrainsQuery(ctx context.Context, trainsQuery query.Trains) ([]*ctdf.Train, error) {
	filter := trainsQuery.Filter

	return s.Repository.FindMany(ctx, &filter, trainsQuery.Fields...)
}

func (s Source) ActiveTrainStatusQuery(ctx context.Context, _ query.ActiveTrainStatus) ([]*ctdf.TrainStatusSummary, error) {
	trains, err := s.Repository.FindMany(ctx, &ctdf.TrainFilter{
		TDActive:       ctdf.Bool(true),
		MovementActive: ctdf.Bool(true),
		ScheduleActive: ctdf.Bool(true),
	}, "headcode", "lastmovement.variationstatus")
	if err != nil {
		return nil, err
	}

	summaries := make([]*ctdf.TrainStatusSummary, 0, len(trains))
	for _, train := range trains {
		summary := &ctdf.TrainStatusSummary{
			PrimaryIdentifier: train.PrimaryIdentifier,
			Headcode:          train.Headcode,
			VariationStatus:   ctdf.VariationStatusUnknown,
		}
		if train.LastMovement != nil && train.LastMovement.VariationStatus != "" {
			summary.VariationStatus = train.LastMovement.VariationStatus
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
