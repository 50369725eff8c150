package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

func (d *Driver) queryFacts(ctx context.Context, query string, args ...any) ([]*fact.Fact, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Backend(err, "failed to query facts")
	}
	defer rows.Close()

	facts := []*fact.Fact{}
	for rows.Next() {
		f, err := d.scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend(err, "failed to iterate facts")
	}

	return facts, nil
}

// scanFact reads Columns, then any extra destinations, from s.
func (d *Driver) scanFact(s scanner, extra ...any) (*fact.Fact, error) {
	var (
		f          fact.Fact
		summary    sql.NullString
		supersedes sql.NullString
		accessedAt sql.NullString
		tags       sql.NullString
		extends    sql.NullString
		source     string
		status     string
		factType   string
		authorType string
		createdAt  string
		updatedAt  string
	)

	dest := []any{
		&f.ID, &f.Path, &f.Title, &f.Content, &summary, &tags, &source, &f.Namespace,
		&f.TrustScore, &status, &factType, &supersedes, &extends,
		&authorType, &f.AuthorID, &createdAt, &updatedAt, &accessedAt,
	}
	dest = append(dest, extra...)

	if err := s.Scan(dest...); err != nil {
		return nil, storage.Backend(err, "failed to scan fact")
	}

	f.Source = fact.Source(source)
	f.Status = fact.Status(status)
	f.Type = fact.Type(factType)
	f.AuthorType = fact.AuthorType(authorType)
	f.Tags = d.decodeList(tags, "tags", f.ID)
	f.Extends = d.decodeList(extends, "extends", f.ID)

	if summary.Valid {
		f.Summary = &summary.String
	}
	if supersedes.Valid {
		f.Supersedes = &supersedes.String
	}

	var err error
	if f.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return nil, storage.Serialization(err, "fact %s created_at", f.ID)
	}
	if f.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return nil, storage.Serialization(err, "fact %s updated_at", f.ID)
	}
	if accessedAt.Valid {
		t, err := storage.ParseTime(accessedAt.String)
		if err != nil {
			return nil, storage.Serialization(err, "fact %s accessed_at", f.ID)
		}
		f.AccessedAt = &t
	}

	return &f, nil
}

// decodeList reads a JSON string array. Malformed values decode as empty so
// one bad row cannot hide the rest of a listing.
func (d *Driver) decodeList(raw sql.NullString, field, id string) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}

	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		d.logger.Warn("malformed fact column, treating as empty",
			"id", id,
			"column", field,
			"error", err,
		)
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
