package databaselookup

import (
	"context"

	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
)

func (s Source) StationBoardQuery(ctx context.Context, boardQuery query.StationBoard) ([]*ctdf.StationBoardEntry, error) {
	trains, err := s.Repository.FindMany(ctx, &ctdf.TrainFilter{
		CRS:        boardQuery.CRS,
		WindowFrom: boardQuery.From,
		WindowTo:   boardQuery.To,
	})
	if err != nil {
		return nil, err
	}

	return ctdf.GenerateStationBoard(trains, boardQuery.CRS, boardQuery.From, boardQuery.To, s.OnTimeTolerance), nil
}

func (s Source) StationDelaysQuery(ctx context.Context, delaysQuery query.StationDelays) ([]*ctdf.StationBoardEntry, error) {
	board, err := s.StationBoardQuery(ctx, query.StationBoard(delaysQuery))
	if err != nil {
		return nil, err
	}

	return ctdf.FilterDelayed(board), nil
}
