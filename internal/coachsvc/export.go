package coachsvc

import (
	"context"
	"errors"

	"github.com/fdg312/run-coach/internal/export"
)

var ErrExportDisabled = errors.New("export disabled")

const transcriptTitle = "Historique du coach"

func (s *Service) WithExporter(exporter *export.Exporter) *Service {
	s.exporter = exporter
	return s
}

// ExportExchanges renders the caller's exchange log, oldest first, and stores it.
func (s *Service) ExportExchanges(ctx context.Context, format string) (*ExportDTO, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	owner := s.ownerFromContext(ctx)
	rows, err := s.exchanges.ListExchanges(ctx, owner, s.listLimit)
	if err != nil {
		return nil, err
	}

	transcript := export.Transcript{Title: transcriptTitle}
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		transcript.Entries = append(transcript.Entries,
			export.Entry{Time: row.CreatedAt.In(s.loc), Author: "Moi", Text: row.Message},
			export.Entry{Time: row.CreatedAt.In(s.loc), Author: "Coach", Text: row.Reply},
		)
	}

	res, err := s.exporter.Export(ctx, owner, transcript, f)
	if err != nil {
		return nil, err
	}
	return &ExportDTO{
		Key:         res.Key,
		Format:      string(res.Format),
		SizeBytes:   res.SizeBytes,
		DownloadURL: res.URL,
		Exchanges:   len(rows),
	}, nil
}

// OpenExport returns a stored export owned by the caller.
func (s *Service) OpenExport(ctx context.Context, key string) ([]byte, export.Format, error) {
	if s.exporter == nil {
		return nil, "", ErrExportDisabled
	}
	return s.exporter.Open(ctx, s.ownerFromContext(ctx), key)
}
