package endpoint

import "time"

// Field is a tri-state patch value. The zero value is omitted and leaves the
// stored column untouched; Set overwrites it; Clear erases it.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Set returns a field that overwrites the stored value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// Clear returns a field that erases the stored value.
func Clear[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// SetPtr sets *v, or clears when v is nil.
func SetPtr[T any](v *T) Field[T] {
	if v == nil {
		return Clear[T]()
	}
	return Set(*v)
}

// Omitted reports whether the field leaves the stored value untouched.
func (f Field[T]) Omitted() bool { return !f.present }

// Cleared reports whether the field erases the stored value.
func (f Field[T]) Cleared() bool { return f.present && f.null }

// Value returns the value to write and whether there is one.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.present && !f.null
}

// SQLValue returns the value as a database/sql argument: nil when cleared.
func (f Field[T]) SQLValue() any {
	if f.null {
		return nil
	}
	return f.value
}

// Patch is a partial update of an endpoint's mutable fields.
type Patch struct {
	Name           Field[string]
	URL            Field[string]
	TimeoutMs      Field[int64]
	Status         Field[Status]
	StatusCode     Field[int]
	ResponseTimeMs Field[int64]
	ErrorMessage   Field[string]
	StatusSince    Field[time.Time]
	LastCheckedAt  Field[time.Time]
}

// Empty reports whether the patch touches nothing.
func (p Patch) Empty() bool {
	return p.Name.Omitted() &&
		p.URL.Omitted() &&
		p.TimeoutMs.Omitted() &&
		p.Status.Omitted() &&
		p.StatusCode.Omitted() &&
		p.ResponseTimeMs.Omitted() &&
		p.ErrorMessage.Omitted() &&
		p.StatusSince.Omitted() &&
		p.LastCheckedAt.Omitted()
}

// Apply returns a copy of e with the patch merged in.
func (p Patch) Apply(e Endpoint) Endpoint {
	applyValue(p.Name, &e.Name)
	applyValue(p.URL, &e.URL)
	applyValue(p.TimeoutMs, &e.TimeoutMs)
	applyValue(p.Status, &e.Status)
	applyValue(p.StatusSince, &e.StatusSince)
	applyPtr(p.StatusCode, &e.StatusCode)
	applyPtr(p.ResponseTimeMs, &e.ResponseTimeMs)
	applyPtr(p.ErrorMessage, &e.ErrorMessage)
	applyPtr(p.LastCheckedAt, &e.LastCheckedAt)
	return e
}

func applyValue[T any](f Field[T], dst *T) {
	if f.Omitted() {
		return
	}
	var zero T
	if v, ok := f.Value(); ok {
		*dst = v
	} else {
		*dst = zero
	}
}

func applyPtr[T any](f Field[T], dst **T) {
	if f.Omitted() {
		return
	}
	if v, ok := f.Value(); ok {
		*dst = &v
	} else {
		*dst = nil
	}
}
