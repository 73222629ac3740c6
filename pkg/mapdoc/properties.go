package mapdoc

// Properties is a string map that remembers insertion order. Lookups are
// by key; iteration follows the order keys were first set.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores value under key. Re-setting a key keeps its position.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// GetOr returns the value under key or fallback when it is missing.
func (p *Properties) GetOr(key, fallback string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return fallback
}

// Delete removes key.
func (p *Properties) Delete(key string) {
	if p == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Each calls fn for every pair in insertion order.
func (p *Properties) Each(fn func(key, value string)) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		fn(k, p.values[k])
	}
}

// Clone returns an independent copy.
func (p *Properties) Clone() *Properties {
	c := NewProperties()
	p.Each(c.Set)
	return c
}

// Equal reports whether both maps hold the same pairs in the same order.
func (p *Properties) Equal(other *Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	for i, k := range p.Keys() {
		if other.keys[i] != k || other.values[k] != p.values[k] {
			return false
		}
	}
	return true
}
