package quoting

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/tordrt/bizobj"
)

const linkTable = "agency_underwriters"

// saveAgencyUnderwriters rewrites the agency's link rows so they match the
// underwriterIds property. A property left unset keeps the existing links.
func saveAgencyUnderwriters(ctx context.Context, e *bizobj.Entity) error {
	raw := e.Value("underwriterIds")
	if raw == nil {
		return nil
	}
	ids, err := toIDs(raw)
	if err != nil {
		return err
	}

	client := e.Mapper().Client()
	d := client.Dialect()

	del := "DELETE FROM " + d.Quote(linkTable) + " WHERE " + d.Quote("agency_id") + " = " + d.Placeholder(1)
	if _, err := client.Exec(ctx, del, e.ID()); err != nil {
		return fmt.Errorf("failed to clear underwriter links: %w", err)
	}

	ins := "INSERT INTO " + d.Quote(linkTable) +
		" (" + d.Quote("agency_id") + ", " + d.Quote("underwriter_id") + ")" +
		" VALUES (" + d.Placeholder(1) + ", " + d.Placeholder(2) + ")"
	for _, id := range ids {
		if _, err := client.Exec(ctx, ins, e.ID(), id); err != nil {
			return fmt.Errorf("failed to link underwriter %d: %w", id, err)
		}
	}
	return nil
}

func agencyUnderwriterIDs(ctx context.Context, client bizobj.Client, agencyID int64) ([]int64, error) {
	d := client.Dialect()
	query := "SELECT " + d.Quote("underwriter_id") + " FROM " + d.Quote(linkTable) +
		" WHERE " + d.Quote("agency_id") + " = " + d.Placeholder(1) +
		" ORDER BY " + d.Quote("underwriter_id")

	rows, err := client.Query(ctx, query, agencyID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		id, ok := asID(row["underwriter_id"])
		if !ok {
			return nil, fmt.Errorf("unexpected underwriter id %v", row["underwriter_id"])
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// toIDs accepts the list shapes underwriterIds can hold: []int64 from Go
// callers and []any of float64 from decoded JSON.
func toIDs(v any) ([]int64, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &bizobj.ValidationError{Property: "underwriterIds", Reason: fmt.Sprintf("expected a list of ids, got %T", v)}
	}

	ids := make([]int64, rv.Len())
	for i := range ids {
		id, ok := asID(rv.Index(i).Interface())
		if !ok || id <= 0 {
			return nil, &bizobj.ValidationError{Property: "underwriterIds", Reason: fmt.Sprintf("element %d is not an id", i)}
		}
		ids[i] = id
	}
	return ids, nil
}

func asID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
