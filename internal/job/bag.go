package job

import "jenkey/internal/placeholder"

// Bit is one named component of a Job, rendered through the template
// `<category>/<name>`.
type Bit struct {
	Category Category
	Name     string
	Data     placeholder.Value
}

// Bag is the ordered list of bits for one category.
type Bag struct {
	category Category
	bits     []Bit
}

// Add appends a bit.
func (b *Bag) Add(name string, data any) {
	b.bits = append(b.bits, b.bit(name, data))
}

// Replace discards every bit and keeps only the given one.
func (b *Bag) Replace(name string, data any) {
	b.bits = []Bit{b.bit(name, data)}
}

// Insert places a bit before position index. Negative indexes count from the
// end and out-of-range indexes are clamped, so Insert never fails.
func (b *Bag) Insert(name string, data any, index int) {
	n := len(b.bits)
	if index < 0 {
		index += n
		if index < 0 {
			index = 0
		}
	}
	if index > n {
		index = n
	}

	b.bits = append(b.bits, Bit{})
	copy(b.bits[index+1:], b.bits[index:])
	b.bits[index] = b.bit(name, data)
}

// Bits returns a copy of the bag's entries.
func (b *Bag) Bits() []Bit {
	out := make([]Bit, len(b.bits))
	copy(out, b.bits)
	return out
}

// Len returns the number of bits.
func (b *Bag) Len() int {
	return len(b.bits)
}

func (b *Bag) bit(name string, data any) Bit {
	return Bit{Category: b.category, Name: name, Data: placeholder.From(data)}
}
