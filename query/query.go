package query

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/gametags/tags"
)

var log = commonlog.GetLogger("gametags.query")

// Version is the current token stream format version.
const Version uint8 = 1

// maxOperands is the cap on per-expression counts and on the dictionary,
// since both are stored in single bytes.
const maxOperands = 255

var (
	// ErrQueryTooLarge is returned when an expression or the dictionary
	// exceeds what a byte can index.
	ErrQueryTooLarge = errors.New("query exceeds 255 operands")

	// ErrMalformedQuery is returned when a stream does not decode.
	ErrMalformedQuery = errors.New("malformed query token stream")

	// ErrReplaceSize is returned when a replacement dictionary differs in
	// size from the current one.
	ErrReplaceSize = errors.New("replacement tag count differs from query dictionary")
)

// Query is a flattened expression tree: a token stream plus the tags it
// references. The zero value is the empty query.
//
// Stream layout:
//
//	[version, hasRoot, expr]
//	expr := kind, count, operand*
//
// Tag-set operands are dictionary indices, expression-set operands are
// nested exprs.
type Query struct {
	version uint8
	dict    []tags.Tag
	tokens  []byte
	desc    string
}

// Build flattens root into a Query. A nil root yields an empty query.
func Build(root *Expr, description string) (Query, error) {
	q := Query{version: Version, desc: description}
	q.tokens = []byte{Version, 0}
	if root == nil {
		return q, nil
	}
	q.tokens[1] = 1
	if err := EmitTokens(root, &q.tokens, &q.dict); err != nil {
		return Query{}, err
	}
	return q, nil
}

// MustBuild is Build for queries known to be well formed; it panics on
// error.
func MustBuild(root *Expr, description string) Query {
	q, err := Build(root, description)
	if err != nil {
		panic(fmt.Sprintf("query: %v", err))
	}
	return q
}

// MatchAnyTags builds a query matching subjects with any tag of c.
func MatchAnyTags(c tags.Container) (Query, error) {
	return Build(AnyTags().AddTags(c), "")
}

// MatchAllTags builds a query matching subjects with every tag of c.
func MatchAllTags(c tags.Container) (Query, error) {
	return Build(AllTags().AddTags(c), "")
}

// MatchNoTags builds a query matching subjects with no tag of c.
func MatchNoTags(c tags.Container) (Query, error) {
	return Build(NoTags().AddTags(c), "")
}

// EmitTokens appends e to tokens depth first, adding referenced tags to
// dict. A tag already in dict reuses its slot.
func EmitTokens(e *Expr, tokens *[]byte, dict *[]tags.Tag) error {
	if e == nil || e.Type == Undefined {
		return fmt.Errorf("%w: undefined expression", ErrMalformedQuery)
	}
	*tokens = append(*tokens, byte(e.Type))

	if e.Type.UsesTagSet() {
		if len(e.Tags) > maxOperands {
			return fmt.Errorf("%w: %d tags in one expression", ErrQueryTooLarge, len(e.Tags))
		}
		*tokens = append(*tokens, byte(len(e.Tags)))
		for _, t := range e.Tags {
			idx, err := dictIndex(dict, t)
			if err != nil {
				return err
			}
			*tokens = append(*tokens, idx)
		}
		return nil
	}

	if len(e.Exprs) > maxOperands {
		return fmt.Errorf("%w: %d sub-expressions", ErrQueryTooLarge, len(e.Exprs))
	}
	*tokens = append(*tokens, byte(len(e.Exprs)))
	for _, sub := range e.Exprs {
		if err := EmitTokens(sub, tokens, dict); err != nil {
			return err
		}
	}
	return nil
}

func dictIndex(dict *[]tags.Tag, t tags.Tag) (byte, error) {
	for i, existing := range *dict {
		if existing == t {
			return byte(i), nil
		}
	}
	if len(*dict) >= maxOperands {
		return 0, fmt.Errorf("%w: dictionary full", ErrQueryTooLarge)
	}
	*dict = append(*dict, t)
	return byte(len(*dict) - 1), nil
}

// FromStream rebuilds a Query from stored parts. The stream is decoded
// once up front so a corrupt record is rejected here rather than at
// evaluation.
func FromStream(version uint8, dict []tags.Tag, tokens []byte, description string) (Query, error) {
	q := Query{
		version: version,
		dict:    append([]tags.Tag(nil), dict...),
		tokens:  append([]byte(nil), tokens...),
		desc:    description,
	}
	if len(q.tokens) == 0 {
		return q, nil
	}
	if version != Version {
		return Query{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedQuery, version)
	}
	if _, err := q.Expr(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// IsEmpty reports whether the query has no root expression. Matches
// returns false for an empty query; call sites that want "no criteria
// means pass" must check IsEmpty themselves.
func (q Query) IsEmpty() bool {
	return len(q.tokens) < 2 || q.tokens[1] == 0
}

// Version returns the stream format version, 0 for the zero query.
func (q Query) Version() uint8 {
	return q.version
}

// Description returns the free-text description given at build time.
func (q Query) Description() string {
	return q.desc
}

// Dictionary returns a copy of the referenced tags in slot order.
func (q Query) Dictionary() []tags.Tag {
	return append([]tags.Tag(nil), q.dict...)
}

// Tokens returns a copy of the token stream.
func (q Query) Tokens() []byte {
	return append([]byte(nil), q.tokens...)
}

// Clear resets q to the empty query.
func (q *Query) Clear() {
	*q = Query{}
}

// ReplaceTagsFast swaps the dictionary for the tags of c, slot for slot,
// leaving the expression structure untouched.
func (q *Query) ReplaceTagsFast(c tags.Container) error {
	if c.Num() != len(q.dict) {
		return fmt.Errorf("%w: have %d, got %d", ErrReplaceSize, len(q.dict), c.Num())
	}
	q.dict = c.Tags()
	return nil
}

// ReplaceTagFast swaps the single dictionary tag of q for t.
func (q *Query) ReplaceTagFast(t tags.Tag) error {
	if len(q.dict) != 1 {
		return fmt.Errorf("%w: have %d, got 1", ErrReplaceSize, len(q.dict))
	}
	q.dict = []tags.Tag{t}
	return nil
}

// Expr decodes the stream back into an expression tree. It returns nil
// for an empty query.
func (q Query) Expr() (*Expr, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	d := decoder{q: &q, pos: 2}
	e := d.expr()
	if d.err != nil {
		return nil, d.err
	}
	if d.pos != len(q.tokens) {
		return nil, fmt.Errorf("%w: %d trailing tokens", ErrMalformedQuery, len(q.tokens)-d.pos)
	}
	return e, nil
}

// String renders the query, or "EMPTY".
func (q Query) String() string {
	e, err := q.Expr()
	if err != nil {
		return "MALFORMED"
	}
	if e == nil {
		return "EMPTY"
	}
	return e.String()
}

type decoder struct {
	q   *Query
	pos int
	err error
}

func (d *decoder) next() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.q.tokens) {
		d.err = fmt.Errorf("%w: stream ends at %d", ErrMalformedQuery, d.pos)
		return 0
	}
	b := d.q.tokens[d.pos]
	d.pos++
	return b
}

func (d *decoder) tag(idx byte) tags.Tag {
	if int(idx) >= len(d.q.dict) {
		if d.err == nil {
			d.err = fmt.Errorf("%w: tag index %d outside dictionary of %d", ErrMalformedQuery, idx, len(d.q.dict))
		}
		return tags.Tag{}
	}
	return d.q.dict[idx]
}

func (d *decoder) expr() *Expr {
	e := &Expr{Type: ExprType(d.next())}
	n := int(d.next())
	switch {
	case e.Type.UsesTagSet():
		for i := 0; i < n && d.err == nil; i++ {
			e.Tags = append(e.Tags, d.tag(d.next()))
		}
	case e.Type.UsesExprSet():
		for i := 0; i < n && d.err == nil; i++ {
			e.Exprs = append(e.Exprs, d.expr())
		}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: unknown expression kind %d", ErrMalformedQuery, e.Type)
		}
	}
	return e
}
