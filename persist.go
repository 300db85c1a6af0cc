package bizobj

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tordrt/bizobj/internal/db"
)

// Save writes the entity's own row, inserting it when ID is 0 and updating it
// otherwise, then cascades: every save handler runs in schema order, then the
// children of every class property are saved in list order, each receiving
// the parent id in its associated field first.
//
// The cascade is sequential and not transactional. The first failure stops
// it; rows already written stay written.
func (e *Entity) Save(ctx context.Context) error {
	log := e.m.log.With().
		Str("table", e.schema.table).
		Str("trace", ulid.Make().String()).
		Logger()

	var err error
	if e.id == 0 {
		err = e.Insert(ctx)
	} else {
		err = e.Update(ctx)
	}
	if err != nil {
		return err
	}

	return e.cascade(ctx, log)
}

func (e *Entity) cascade(ctx context.Context, log zerolog.Logger) error {
	for i := range e.schema.props {
		p := &e.schema.props[i]
		if p.SaveHandler == nil {
			continue
		}
		log.Debug().Str("property", p.Name).Int64("id", e.id).Msg("running save handler")
		if err := p.SaveHandler(ctx, e); err != nil {
			return fmt.Errorf("save %s.%s: %w", e.schema.table, p.Name, err)
		}
	}

	for i := range e.schema.props {
		p := &e.schema.props[i]
		if p.Class == nil {
			continue
		}
		children := e.values[i].([]*Entity)
		log.Debug().Str("property", p.Name).Int64("id", e.id).Int("children", len(children)).Msg("saving children")
		for n, child := range children {
			if p.AssociatedField != "" {
				if err := child.Set(p.AssociatedField, e.id); err != nil {
					return fmt.Errorf("save %s.%s[%d]: %w", e.schema.table, p.Name, n, err)
				}
			}
			if err := child.Save(ctx); err != nil {
				return fmt.Errorf("save %s.%s[%d]: %w", e.schema.table, p.Name, n, err)
			}
		}
	}
	return nil
}

// Insert writes a new row holding every set column and records the id the
// database assigned. Unset columns are omitted so database defaults apply.
// It fails with ErrAlreadyPersisted, without issuing SQL, if ID is not 0.
func (e *Entity) Insert(ctx context.Context) error {
	if e.id != 0 {
		return fmt.Errorf("%w: %s id %d", ErrAlreadyPersisted, e.schema.table, e.id)
	}

	cols, args, err := e.columns(ctx)
	if err != nil {
		return err
	}

	d := e.m.client.Dialect()
	var query string
	if len(cols) == 0 {
		query = d.DefaultValuesInsert(e.schema.table)
	} else {
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = d.Quote(c)
			marks[i] = d.Placeholder(i + 1)
		}
		query = "INSERT INTO " + d.Quote(e.schema.table) +
			" (" + strings.Join(quoted, ", ") + ")" +
			" VALUES (" + strings.Join(marks, ", ") + ")"
	}

	var id int64
	if d.Returning {
		rows, err := e.m.client.Query(ctx, query+" RETURNING "+d.Quote(idColumn), args...)
		if err != nil {
			return e.m.writeFailure("insert", e, err)
		}
		if len(rows) != 1 {
			return e.m.internal("insert", e, fmt.Errorf("%d rows returned", len(rows)))
		}
		id, _ = toInt64(rows[0][idColumn])
	} else {
		res, err := e.m.client.Exec(ctx, query, args...)
		if err != nil {
			return e.m.writeFailure("insert", e, err)
		}
		if res.RowsAffected != 1 {
			return e.m.internal("insert", e, fmt.Errorf("%d rows affected", res.RowsAffected))
		}
		id = res.LastInsertID
	}

	if id <= 0 {
		return e.m.internal("insert", e, fmt.Errorf("database returned id %d", id))
	}
	e.id = id
	return nil
}

// Update rewrites every set column of the entity's row. Exactly one row must
// match; anything else, including a missing row, is an internal error. With
// nothing to write it only checks that the row exists.
func (e *Entity) Update(ctx context.Context) error {
	if e.id == 0 {
		return e.m.internal("update", e, errors.New("entity has not been inserted"))
	}

	cols, args, err := e.columns(ctx)
	if err != nil {
		return err
	}
	d := e.m.client.Dialect()
	if len(cols) == 0 {
		e.m.log.Debug().Str("table", e.schema.table).Int64("id", e.id).Msg("nothing to update")
		return e.exists(ctx, d)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = d.Quote(c) + " = " + d.Placeholder(i+1)
	}
	query := "UPDATE " + d.Quote(e.schema.table) +
		" SET " + strings.Join(sets, ", ") +
		" WHERE " + d.Quote(idColumn) + " = " + d.Placeholder(len(cols)+1) +
		limitOne(d)
	args = append(args, e.id)

	res, err := e.m.client.Exec(ctx, query, args...)
	if err != nil {
		return e.m.writeFailure("update", e, err)
	}
	if res.RowsAffected != 1 {
		return e.m.internal("update", e, fmt.Errorf("%d rows affected", res.RowsAffected))
	}
	return nil
}

// exists checks that the entity's row is still there when an update has
// nothing to write.
func (e *Entity) exists(ctx context.Context, d db.Dialect) error {
	query := "SELECT 1 FROM " + d.Quote(e.schema.table) +
		" WHERE " + d.Quote(idColumn) + " = " + d.Placeholder(1) + " LIMIT 1"

	rows, err := e.m.client.Query(ctx, query, e.id)
	if err != nil {
		return e.m.internal("update", e, err)
	}
	if len(rows) != 1 {
		return e.m.internal("update", e, fmt.Errorf("%d rows matched", len(rows)))
	}
	return nil
}

// GetByID fetches the row with the given id and hydrates the entity from it
// in DatabaseLoad mode. It returns ErrNotFound if no row matches. If hydration
// fails the entity keeps its previous id.
func (e *Entity) GetByID(ctx context.Context, id int64) error {
	d := e.m.client.Dialect()
	query := "SELECT * FROM " + d.Quote(e.schema.table) +
		" WHERE " + d.Quote(idColumn) + " = " + d.Placeholder(1) + " LIMIT 1"

	rows, err := e.m.client.Query(ctx, query, id)
	if err != nil {
		return e.m.internal("get", e, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s id %d", ErrNotFound, e.schema.table, id)
	}

	prev := e.id
	e.id = id
	if err := e.Load(rows[0], DatabaseLoad); err != nil {
		e.id = prev
		return err
	}
	return nil
}

// FetchChildren replaces a class property's children with the rows of the
// child table whose associated field holds this entity's id, in id order.
func (e *Entity) FetchChildren(ctx context.Context, name string) error {
	i, err := e.classIndex(name)
	if err != nil {
		return err
	}
	p := &e.schema.props[i]
	if p.AssociatedField == "" {
		return fmt.Errorf("bizobj: %s.%s has no associated field", e.schema.table, name)
	}
	if e.id == 0 {
		e.values[i] = []*Entity{}
		return nil
	}

	child := p.Class
	fk := child.props[child.byName[p.AssociatedField]].Column
	d := e.m.client.Dialect()
	query := "SELECT * FROM " + d.Quote(child.table) +
		" WHERE " + d.Quote(fk) + " = " + d.Placeholder(1) +
		" ORDER BY " + d.Quote(idColumn)

	rows, err := e.m.client.Query(ctx, query, e.id)
	if err != nil {
		return e.m.internal("fetch children", e, err)
	}
	return e.loadChildren(i, rows, DatabaseLoad)
}

// Delete removes the entity's row and resets its id to 0. Children are left to
// the database's foreign key rules.
func (e *Entity) Delete(ctx context.Context) error {
	if e.id == 0 {
		return e.m.internal("delete", e, errors.New("entity has not been inserted"))
	}

	d := e.m.client.Dialect()
	query := "DELETE FROM " + d.Quote(e.schema.table) +
		" WHERE " + d.Quote(idColumn) + " = " + d.Placeholder(1) +
		limitOne(d)

	res, err := e.m.client.Exec(ctx, query, e.id)
	if err != nil {
		return e.m.internal("delete", e, err)
	}
	switch res.RowsAffected {
	case 1:
		e.id = 0
		return nil
	case 0:
		return fmt.Errorf("%w: %s id %d", ErrNotFound, e.schema.table, e.id)
	default:
		return e.m.internal("delete", e, fmt.Errorf("%d rows affected", res.RowsAffected))
	}
}

// columns lists the entity's own set columns with their write-ready values.
// Class and save-handler properties are persisted by the cascade instead.
func (e *Entity) columns(ctx context.Context) ([]string, []any, error) {
	var (
		cols []string
		args []any
	)
	for i := range e.schema.props {
		p := &e.schema.props[i]
		if p.cascaded() {
			continue
		}
		v := e.values[i]
		if isAbsent(v) || (p.Type.temporal() && v == "") {
			continue
		}
		cv, err := e.m.encode(ctx, e, p, v, e.stored[i])
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, p.Column)
		args = append(args, cv)
	}
	return cols, args, nil
}

// encode produces the column value for a stored property value.
func (m *Mapper) encode(ctx context.Context, e *Entity, p *Property, v any, stored bool) (any, error) {
	switch {
	case p.Encrypted && !stored:
		if m.enc == nil {
			return nil, m.internal("encrypt", e, fmt.Errorf("no encrypter configured for %s", p.Name))
		}
		out, err := m.enc.Encrypt(ctx, stringify(v))
		if err != nil {
			return nil, m.internal("encrypt", e, err)
		}
		return out, nil
	case p.Hashed && !stored:
		if m.hasher == nil {
			return nil, m.internal("hash", e, fmt.Errorf("no hasher configured for %s", p.Name))
		}
		out, err := m.hasher.Hash(stringify(v))
		if err != nil {
			return nil, m.internal("hash", e, err)
		}
		return out, nil
	}

	switch {
	case p.Type.temporal():
		s, _ := v.(string)
		t, err := parseTemporal(s)
		if err != nil {
			return nil, invalid(p, "%v", err)
		}
		return t.UTC().Format(DatetimeLayout), nil
	case p.Type == TypeObject || p.Type == TypeJSON:
		if s, ok := v.(string); ok {
			return s, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, invalid(p, "cannot encode as JSON: %v", err)
		}
		return string(b), nil
	}
	return v, nil
}

// writeFailure maps a failed INSERT or UPDATE to ErrConflict or ErrInternal.
func (m *Mapper) writeFailure(op string, e *Entity, err error) error {
	if db.IsDuplicateKey(err) {
		m.log.Info().Str("op", op).Str("table", e.schema.table).Int64("id", e.id).Msg("duplicate key")
		return fmt.Errorf("%w (%s)", ErrConflict, e.schema.table)
	}
	return m.internal(op, e, err)
}

// internal logs cause with its call site and returns an opaque ErrInternal.
func (m *Mapper) internal(op string, e *Entity, cause error) error {
	m.log.Error().
		Err(cause).
		Str("op", op).
		Str("table", e.schema.table).
		Int64("id", e.id).
		Msg("entity persistence failed")
	return fmt.Errorf("%w: %s %s", ErrInternal, op, e.schema.table)
}

func limitOne(d db.Dialect) string {
	if d.UpdateLimit {
		return " LIMIT 1"
	}
	return ""
}
