package calib

import (
	"errors"
	"fmt"

	attrs "github.com/goliatone/go-attrs"
	"github.com/goliatone/go-attrs/internal/coerce"
	"github.com/goliatone/go-attrs/observe"
)

// Variant tags the derivation strategy of a Derived attribute.
type Variant string

const (
	// VariantRemap derives through a fixed uncal→cal lookup series.
	VariantRemap Variant = "remap"
	// VariantTable derives through a file-backed calibration table sliced
	// by an index attribute.
	VariantTable Variant = "table"
	// VariantTransform derives through paired forward/reverse functions.
	VariantTransform Variant = "transform"
)

// Derived is an attribute computed from one or more other attributes. It is
// a Descriptor like any other and registers into the same Registry; get and
// set delegate to the base attribute after applying the variant's
// transformation, and notify under the derived attribute's own name.
type Derived struct {
	name    string
	cfg     attrs.Config
	variant Variant
	base    attrs.Descriptor
	other   attrs.Descriptor

	series *Series

	pathAttr    attrs.Descriptor
	indexAttr   attrs.Descriptor
	indexColumn string
	comma       rune

	fwd  Func
	rev  Func
	fwd2 BinaryFunc
	rev2 BinaryFunc

	getsOK bool
	setsOK bool

	errs []error
	reg  *attrs.Registry

	// bound records that Bind ran; bindErr keeps its result so a repeat
	// finalize neither re-wires nor drops a configuration error.
	bound   bool
	bindErr error
	qname   string
}

// Func transforms one value.
type Func func(x float64) (float64, error)

// BinaryFunc transforms a value parameterized by a second attribute.
type BinaryFunc func(x, other float64) (float64, error)

// DerivedOption configures a derived declaration.
type DerivedOption func(*Derived)

// Help sets the documentation string.
func Help(help string) DerivedOption {
	return func(d *Derived) { d.cfg.Help = help }
}

// Label sets a short display label, typically a unit.
func Label(label string) DerivedOption {
	return func(d *Derived) { d.cfg.Label = label }
}

// AllowNil permits unresolved dependencies to surface as nil instead of an
// error.
func AllowNil(v bool) DerivedOption {
	return func(d *Derived) { d.cfg.AllowNil = v }
}

// Log controls notification emission.
func Log(v bool) DerivedOption {
	return func(d *Derived) { d.cfg.Log = v }
}

// Gets declares whether the derived attribute is readable.
func Gets(v bool) DerivedOption {
	return func(d *Derived) { d.cfg.Gets = &v }
}

// Sets declares whether the derived attribute is writable.
func Sets(v bool) DerivedOption {
	return func(d *Derived) { d.cfg.Sets = &v }
}

// IndexColumn names the table's row-index column. Default "index".
func IndexColumn(name string) DerivedOption {
	return func(d *Derived) { d.indexColumn = name }
}

// Delimiter sets the table file's field delimiter. Default ','.
func Delimiter(comma rune) DerivedOption {
	return func(d *Derived) { d.comma = comma }
}

func newDerived(name string, variant Variant, base attrs.Descriptor, opts []DerivedOption) *Derived {
	d := &Derived{
		name:        name,
		variant:     variant,
		base:        base,
		cfg:         attrs.Config{Log: true},
		indexColumn: "index",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if name == "" {
		d.fail("attribute name must not be empty")
	}
	if base == nil {
		d.fail("base attribute is required")
	}
	return d
}

// NewRemap declares a derived attribute backed by a fixed uncal→cal lookup.
// Forward lookups are exact; a missing entry logs a warning and falls back
// to the uncalibrated value. Reverse lookups are nearest-neighbor.
func NewRemap(name string, base attrs.Descriptor, mapping map[float64]float64, opts ...DerivedOption) *Derived {
	d := newDerived(name, VariantRemap, base, opts)
	series, err := NewSeries(mapping)
	if err != nil {
		d.fail(err.Error())
		return d
	}
	d.series = series
	return d
}

// NewTable declares a derived attribute backed by a calibration table file.
// path and index are attributes of the same owner: the file to load and the
// row to select (nearest-neighbor on the index column). The table loads
// lazily once both are set and reloads when either changes.
func NewTable(name string, base, path, index attrs.Descriptor, opts ...DerivedOption) *Derived {
	d := newDerived(name, VariantTable, base, opts)
	d.pathAttr = path
	d.indexAttr = index
	if path == nil || index == nil {
		d.fail("table derivations require path and index attributes")
	}
	return d
}

// NewTransform declares a derived attribute computed by forward on get and
// reverse on set.
func NewTransform(name string, base attrs.Descriptor, forward, reverse Func, opts ...DerivedOption) *Derived {
	d := newDerived(name, VariantTransform, base, opts)
	d.fwd = forward
	d.rev = reverse
	if forward == nil || reverse == nil {
		d.fail("transform derivations require forward and reverse functions")
	}
	return d
}

// NewBinaryTransform declares a transform parameterized by a second
// attribute, e.g. base + other.
func NewBinaryTransform(name string, base, other attrs.Descriptor, forward, reverse BinaryFunc, opts ...DerivedOption) *Derived {
	d := newDerived(name, VariantTransform, base, opts)
	d.other = other
	d.fwd2 = forward
	d.rev2 = reverse
	if other == nil {
		d.fail("binary transforms require an other attribute")
	}
	if forward == nil || reverse == nil {
		d.fail("transform derivations require forward and reverse functions")
	}
	return d
}

func (d *Derived) fail(reason string) {
	d.errs = append(d.errs, &attrs.ConfigError{Attr: d.name, Reason: reason})
}

// Name implements Descriptor.
func (d *Derived) Name() string { return d.name }

// Role implements Descriptor.
func (d *Derived) Role() attrs.Role { return attrs.RoleDerived }

// Config implements Descriptor.
func (d *Derived) Config() *attrs.Config { return &d.cfg }

// Variant returns the derivation strategy tag.
func (d *Derived) Variant() Variant { return d.variant }

// Base returns the base attribute the derivation delegates to.
func (d *Derived) Base() attrs.Descriptor { return d.base }

// Bind implements Descriptor. All dependencies must be registered in the
// same registry, before the derived attribute, so they bind first.
func (d *Derived) Bind(reg *attrs.Registry) error {
	if d.bound {
		return d.bindErr
	}
	d.bound = true
	d.bindErr = d.bind(reg)
	return d.bindErr
}

func (d *Derived) bind(reg *attrs.Registry) error {
	if len(d.errs) > 0 {
		return errors.Join(d.errs...)
	}
	for _, dep := range []attrs.Descriptor{d.base, d.other, d.pathAttr, d.indexAttr} {
		if dep == nil {
			continue
		}
		registered, ok := reg.Attr(dep.Name())
		if !ok || registered != dep {
			return &attrs.ConfigError{
				Attr:   d.name,
				Reason: fmt.Sprintf("dependency %q is not registered in %q", dep.Name(), reg.ClassName()),
			}
		}
	}

	d.getsOK = d.cfg.Gets == nil || *d.cfg.Gets
	if d.cfg.Sets != nil {
		d.setsOK = *d.cfg.Sets
	} else if reporter, ok := d.base.(attrs.AccessReporter); ok {
		_, d.setsOK = reporter.AccessPolicy()
	} else {
		d.setsOK = true
	}

	d.reg = reg
	d.qname = reg.ClassName() + "." + d.name
	return nil
}

// AccessPolicy implements attrs.AccessReporter.
func (d *Derived) AccessPolicy() (bool, bool) { return d.getsOK, d.setsOK }

// FloatBounds implements attrs.FloatBounded: remap bounds come from the
// series' calibrated values; transform bounds propagate the base bounds
// through the forward function, order-independent since forward need not be
// increasing. Table bounds are unknown until a file is loaded.
func (d *Derived) FloatBounds() (float64, float64, bool) {
	switch d.variant {
	case VariantRemap:
		return d.series.CalBounds()
	case VariantTransform:
		if d.fwd == nil {
			return 0, 0, false
		}
		bounded, ok := d.base.(attrs.FloatBounded)
		if !ok {
			return 0, 0, false
		}
		min, max, ok := bounded.FloatBounds()
		if !ok {
			return 0, 0, false
		}
		lo, err1 := d.fwd(min)
		hi, err2 := d.fwd(max)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	default:
		return 0, 0, false
	}
}

// Get reads the derived value.
func (d *Derived) Get(owner attrs.Owner) (float64, error) {
	out, err := d.GetAny(owner, nil)
	if err != nil || out == nil {
		return 0, err
	}
	return coerce.Float(out)
}

// Set writes a calibrated value, resolving and delegating the uncalibrated
// value to the base attribute.
func (d *Derived) Set(owner attrs.Owner, value float64) error {
	return d.SetAny(owner, value, nil)
}

// GetAny implements Descriptor.
func (d *Derived) GetAny(owner attrs.Owner, kwargs attrs.Kwargs) (any, error) {
	if !d.getsOK {
		return nil, &attrs.AccessError{Attr: d.qname, Op: "get"}
	}

	series := d.series
	if d.variant == VariantTable {
		active, ready, err := d.ensure(owner)
		if err != nil {
			return nil, err
		}
		if !ready {
			// Dependencies not set yet: touch, do not raise.
			return nil, nil
		}
		series = active
	}

	raw, err := d.base.GetAny(owner, nil)
	if err != nil {
		// A base that disallows nil raises on an empty store; the derived
		// declaration's own nil policy decides here.
		if !errors.Is(err, attrs.ErrNoValue) {
			return nil, err
		}
		raw = nil
	}
	if raw == nil {
		if !d.cfg.AllowNil {
			return nil, &attrs.ValidationError{
				Attr: d.qname, Value: nil,
				Err: fmt.Errorf("dependency %q holds no value", d.base.Name()),
			}
		}
		return nil, d.record(owner, observe.TypeGet, nil, kwargs)
	}
	uncal, err := coerce.Float(raw)
	if err != nil {
		return nil, &attrs.ValidationError{Attr: d.qname, Value: raw, Err: err}
	}

	var cal float64
	switch d.variant {
	case VariantRemap, VariantTable:
		value, ok := series.LookupCal(uncal)
		if !ok {
			d.logger().Warn("calib: no table entry; returning uncalibrated value",
				"attribute", d.qname, "uncal", uncal)
			value = uncal
		}
		cal = value
	case VariantTransform:
		cal, err = d.applyForward(owner, uncal)
		if err != nil {
			return nil, err
		}
	}

	if err := d.record(owner, observe.TypeGet, cal, kwargs); err != nil {
		return cal, err
	}
	return cal, nil
}

// SetAny implements Descriptor.
func (d *Derived) SetAny(owner attrs.Owner, value any, kwargs attrs.Kwargs) error {
	if !d.setsOK {
		return &attrs.AccessError{Attr: d.qname, Op: "set"}
	}
	if value == nil {
		if !d.cfg.AllowNil {
			return &attrs.ValidationError{Attr: d.qname, Value: nil, Err: errors.New("nil not allowed")}
		}
		if err := d.base.SetAny(owner, nil, nil); err != nil {
			return err
		}
		return d.record(owner, observe.TypeSet, nil, kwargs)
	}

	// The calibrated input is checked against the base attribute's type;
	// its bounds apply to the uncalibrated domain and are enforced below.
	casted, err := d.base.CastAny(value)
	if err != nil {
		return err
	}
	cal, err := coerce.Float(casted)
	if err != nil {
		return &attrs.ValidationError{Attr: d.qname, Value: value, Err: err}
	}

	var uncal float64
	switch d.variant {
	case VariantRemap:
		found, ok := d.series.FindUncal(cal)
		if !ok {
			return &attrs.ValidationError{Attr: d.qname, Value: value, Err: errors.New("empty series")}
		}
		uncal = found
	case VariantTable:
		active, ready, err := d.ensure(owner)
		if err != nil {
			return err
		}
		if !ready {
			return &attrs.ValidationError{
				Attr: d.qname, Value: value,
				Err: fmt.Errorf("calibration dependencies %q and %q are not both set",
					d.pathAttr.Name(), d.indexAttr.Name()),
			}
		}
		found, ok := active.FindUncal(cal)
		if !ok {
			return &attrs.ValidationError{Attr: d.qname, Value: value, Err: errors.New("empty table slice")}
		}
		uncal = found
	case VariantTransform:
		uncal, err = d.applyReverse(owner, cal)
		if err != nil {
			return err
		}
	}

	// A table entry the base attribute itself rejects means the
	// calibration data is corrupt; that is fatal, not a fallback.
	validated, err := d.base.ValidateAny(uncal)
	if err != nil {
		return &attrs.ValidationError{
			Attr: d.qname, Value: value,
			Err: fmt.Errorf("calibration produced invalid %q value %v: %w", d.base.Name(), uncal, err),
		}
	}
	if err := d.base.SetAny(owner, validated, nil); err != nil {
		return err
	}
	return d.record(owner, observe.TypeSet, cal, kwargs)
}

// ValidateAny implements Descriptor.
func (d *Derived) ValidateAny(value any) (any, error) {
	return d.base.CastAny(value)
}

// CastAny implements Descriptor.
func (d *Derived) CastAny(value any) (any, error) {
	return d.base.CastAny(value)
}

func (d *Derived) applyForward(owner attrs.Owner, uncal float64) (float64, error) {
	if d.fwd2 != nil {
		other, err := d.otherValue(owner)
		if err != nil {
			return 0, err
		}
		return d.fwd2(uncal, other)
	}
	return d.fwd(uncal)
}

func (d *Derived) applyReverse(owner attrs.Owner, cal float64) (float64, error) {
	if d.rev2 != nil {
		other, err := d.otherValue(owner)
		if err != nil {
			return 0, err
		}
		return d.rev2(cal, other)
	}
	return d.rev(cal)
}

func (d *Derived) otherValue(owner attrs.Owner) (float64, error) {
	raw, err := d.other.GetAny(owner, nil)
	if err != nil {
		if !errors.Is(err, attrs.ErrNoValue) {
			return 0, err
		}
		raw = nil
	}
	if raw == nil {
		return 0, &attrs.ValidationError{
			Attr: d.qname, Value: nil,
			Err: fmt.Errorf("dependency %q holds no value", d.other.Name()),
		}
	}
	return coerce.Float(raw)
}

// tableState is the per-instance calibration cache for a table derivation.
type tableState struct {
	path    string
	index   float64
	table   *Table
	active  *Series
	matched float64
}

// ensure loads or refreshes the table slice for owner. ready is false while
// either dependency is unset.
func (d *Derived) ensure(owner attrs.Owner) (*Series, bool, error) {
	store := owner.AttrStore()

	rawPath, ok := store.Cached(d.pathAttr.Name())
	if !ok || rawPath == nil {
		return nil, false, nil
	}
	path, err := coerce.String(rawPath)
	if err != nil {
		return nil, false, &attrs.ValidationError{Attr: d.qname, Value: rawPath, Err: err}
	}
	rawIndex, ok := store.Cached(d.indexAttr.Name())
	if !ok || rawIndex == nil {
		return nil, false, nil
	}
	index, err := coerce.Float(rawIndex)
	if err != nil {
		return nil, false, &attrs.ValidationError{Attr: d.qname, Value: rawIndex, Err: err}
	}

	raw, _ := store.Calibration(d.name)
	state, _ := raw.(*tableState)
	if state == nil || state.path != path || state.table == nil {
		table, err := LoadTable(path, d.indexColumn, d.comma)
		if err != nil {
			return nil, false, err
		}
		state = &tableState{path: path, table: table}
		d.logger().Debug("calib: loaded table",
			"attribute", d.qname, "path", path, "rows", table.Rows())
	}
	if state.active == nil || state.index != index {
		active, matched, err := state.table.NearestRow(index)
		if err != nil {
			return nil, false, err
		}
		state.index = index
		state.active = active
		state.matched = matched
	}
	store.SetCalibration(d.name, state)
	return state.active, true, nil
}

// Invalidate drops owner's cached table so the next access reloads it, e.g.
// after the backing file changed on disk.
func (d *Derived) Invalidate(owner attrs.Owner) {
	owner.AttrStore().DropCalibration(d.name)
}

func (d *Derived) record(owner attrs.Owner, typ observe.Type, value any, kwargs attrs.Kwargs) error {
	store := owner.AttrStore()
	old, _ := store.Cached(d.name)
	store.SetCached(d.name, value)
	if !d.cfg.Log {
		return nil
	}
	return store.Observers().Notify(observe.Event{
		Name:   d.name,
		Type:   typ,
		New:    value,
		Old:    old,
		Owner:  owner,
		Kwargs: kwargs,
	})
}

func (d *Derived) logger() attrs.Logger {
	if d.reg != nil {
		return d.reg.Logger()
	}
	return attrs.NopLogger()
}
