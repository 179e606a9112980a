// Package chaos provides utilities for chaos testing parsers with corrupt inputs.
//
// Besides blind byte damage, the Corruptor knows the shape of annotated query
// files and can break them the way people do: a dropped ';', a swapped
// annotation marker, an unclosed quote or field list.
package chaos

import (
	"bytes"
	"math/rand"
	"unicode/utf8"
)

// Corruptor applies seeded, reproducible corruptions.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a new Corruptor with the given seed.
func NewCorruptor(seed int64) *Corruptor {
	return &Corruptor{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Mutation represents a type of corruption applied to input.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	ByteInsert
	ByteReplace
	Utf8Corrupt
	Truncation
	BitInversion
	TerminatorDrop
	TerminatorInsert
	MarkerSwap
	QuoteInsert
	BindInsert
	ParenDrop
	LineEndingFlip

	mutationCount
)

var mutationNames = [...]string{
	ByteFlip:         "byte_flip",
	ByteDelete:       "byte_delete",
	ByteInsert:       "byte_insert",
	ByteReplace:      "byte_replace",
	Utf8Corrupt:      "utf8_corrupt",
	Truncation:       "truncation",
	BitInversion:     "bit_inversion",
	TerminatorDrop:   "terminator_drop",
	TerminatorInsert: "terminator_insert",
	MarkerSwap:       "marker_swap",
	QuoteInsert:      "quote_insert",
	BindInsert:       "bind_insert",
	ParenDrop:        "paren_drop",
	LineEndingFlip:   "line_ending_flip",
}

func (m Mutation) String() string {
	if m >= 0 && m < mutationCount {
		return mutationNames[m]
	}
	return "unknown"
}

// Mutations lists every mutation in declaration order.
func Mutations() []Mutation {
	all := make([]Mutation, 0, mutationCount)
	for m := range mutationCount {
		all = append(all, m)
	}
	return all
}

// Corrupt applies a random corruption to the input.
func (c *Corruptor) Corrupt(input []byte) []byte {
	if len(input) == 0 {
		return c.insertRandomBytes(nil)
	}
	return c.Apply(Mutation(c.rng.Intn(int(mutationCount))), input)
}

// Apply runs a single mutation. input is never modified.
func (c *Corruptor) Apply(m Mutation, input []byte) []byte {
	switch m {
	case ByteFlip:
		return c.byteFlip(input)
	case ByteDelete:
		return c.byteDelete(input)
	case ByteInsert:
		return c.byteInsert(input)
	case ByteReplace:
		return c.byteReplace(input)
	case Utf8Corrupt:
		return c.utf8Corrupt(input)
	case Truncation:
		return c.truncate(input)
	case BitInversion:
		return c.bitInversion(input)
	case TerminatorDrop:
		return c.dropOne(input, []byte(";"))
	case TerminatorInsert:
		return c.insertAt(input, []byte(";"))
	case MarkerSwap:
		return c.markerSwap(input)
	case QuoteInsert:
		quotes := [][]byte{[]byte("'"), []byte(`"`), []byte("$$"), []byte("E'\\'")}
		return c.insertAt(input, quotes[c.rng.Intn(len(quotes))])
	case BindInsert:
		binds := [][]byte{[]byte(":"), []byte("::"), []byte(":x"), []byte(":_")}
		return c.insertAt(input, binds[c.rng.Intn(len(binds))])
	case ParenDrop:
		if c.rng.Intn(2) == 0 {
			return c.dropOne(input, []byte("("))
		}
		return c.dropOne(input, []byte(")"))
	case LineEndingFlip:
		return c.lineEndingFlip(input)
	default:
		return bytes.Clone(input)
	}
}

// CorruptN applies n random corruptions to the input.
func (c *Corruptor) CorruptN(input []byte, n int) []byte {
	result := bytes.Clone(input)
	for range n {
		result = c.Corrupt(result)
	}
	return result
}

// byteFlip flips random bits in random bytes.
func (c *Corruptor) byteFlip(input []byte) []byte {
	result := bytes.Clone(input)
	if len(result) == 0 {
		return result
	}

	// Flip 1-3 random bytes
	n := c.rng.Intn(3) + 1
	for range n {
		idx := c.rng.Intn(len(result))
		result[idx] ^= byte(1 << c.rng.Intn(8))
	}

	return result
}

// byteDelete removes a random byte.
func (c *Corruptor) byteDelete(input []byte) []byte {
	if len(input) <= 1 {
		return bytes.Clone(input)
	}

	idx := c.rng.Intn(len(input))
	result := make([]byte, 0, len(input)-1)
	result = append(result, input[:idx]...)
	return append(result, input[idx+1:]...)
}

// byteInsert inserts a random byte at a random position.
func (c *Corruptor) byteInsert(input []byte) []byte {
	return c.insertAt(input, []byte{byte(c.rng.Intn(256))})
}

// byteReplace replaces a byte with a random byte.
func (c *Corruptor) byteReplace(input []byte) []byte {
	result := bytes.Clone(input)
	if len(result) == 0 {
		return result
	}

	idx := c.rng.Intn(len(result))
	result[idx] = byte(c.rng.Intn(256))
	return result
}

// utf8Corrupt corrupts UTF-8 sequences.
func (c *Corruptor) utf8Corrupt(input []byte) []byte {
	result := bytes.Clone(input)

	for i := 0; i < len(result); {
		r, size := utf8.DecodeRune(result[i:])
		if r == utf8.RuneError && size > 1 {
			if c.rng.Float64() < 0.5 {
				result[i] = byte(c.rng.Intn(256))
			}
		}
		i += size
	}

	// Also inject an invalid UTF-8 start byte
	if len(result) > 0 && c.rng.Float64() < 0.3 {
		idx := c.rng.Intn(len(result))
		result[idx] = 0xC0 | byte(c.rng.Intn(0x20))
	}

	return result
}

// truncate randomly truncates the input.
func (c *Corruptor) truncate(input []byte) []byte {
	if len(input) <= 1 {
		return bytes.Clone(input)
	}

	pos := c.rng.Intn(len(input)-1) + 1
	return bytes.Clone(input[:pos])
}

// bitInversion inverts random bits in the input.
func (c *Corruptor) bitInversion(input []byte) []byte {
	result := bytes.Clone(input)
	if len(result) == 0 {
		return result
	}

	// Invert 1-5 bits
	n := c.rng.Intn(5) + 1
	for range n {
		idx := c.rng.Intn(len(result))
		result[idx] ^= 1 << c.rng.Intn(8)
	}

	return result
}

// insertAt inserts chunk at a random position.
func (c *Corruptor) insertAt(input, chunk []byte) []byte {
	return insertAtIndex(input, c.rng.Intn(len(input)+1), chunk)
}

// dropOne removes a random occurrence of sep, or inserts garbage when
// there is none so the mutation still changes the input.
func (c *Corruptor) dropOne(input, sep []byte) []byte {
	idx := c.randomIndex(input, sep)
	if idx < 0 {
		return c.byteInsert(input)
	}
	result := make([]byte, 0, len(input))
	result = append(result, input[:idx]...)
	return append(result, input[idx+len(sep):]...)
}

// markerSwap turns one annotation marker into the other kind.
func (c *Corruptor) markerSwap(input []byte) []byte {
	typeIdx := c.randomIndex(input, []byte("--:"))
	queryIdx := c.randomIndex(input, []byte("--!"))
	idx := typeIdx
	if idx < 0 || (queryIdx >= 0 && c.rng.Intn(2) == 0) {
		idx = queryIdx
	}
	if idx < 0 {
		return c.insertAt(input, []byte("--!"))
	}
	result := bytes.Clone(input)
	if result[idx+2] == ':' {
		result[idx+2] = '!'
	} else {
		result[idx+2] = ':'
	}
	return result
}

// lineEndingFlip converts one "\n" to "\r\n" or back.
func (c *Corruptor) lineEndingFlip(input []byte) []byte {
	if idx := c.randomIndex(input, []byte("\r\n")); idx >= 0 && c.rng.Intn(2) == 0 {
		return append(bytes.Clone(input[:idx]), input[idx+1:]...)
	}
	idx := c.randomIndex(input, []byte("\n"))
	if idx < 0 {
		return c.insertAt(input, []byte("\r\n"))
	}
	return insertAtIndex(input, idx, []byte("\r"))
}

func insertAtIndex(input []byte, idx int, chunk []byte) []byte {
	result := make([]byte, 0, len(input)+len(chunk))
	result = append(result, input[:idx]...)
	result = append(result, chunk...)
	return append(result, input[idx:]...)
}

// randomIndex returns the offset of a random occurrence of sep, or -1.
func (c *Corruptor) randomIndex(input, sep []byte) int {
	n := bytes.Count(input, sep)
	if n == 0 {
		return -1
	}
	pick := c.rng.Intn(n)
	off := 0
	for {
		i := bytes.Index(input[off:], sep)
		if pick == 0 {
			return off + i
		}
		pick--
		off += i + len(sep)
	}
}

// insertRandomBytes appends random bytes.
func (c *Corruptor) insertRandomBytes(input []byte) []byte {
	n := c.rng.Intn(10) + 1
	buf := make([]byte, n)
	c.rng.Read(buf)
	return append(input, buf...)
}

// GenerateCorpus generates a corpus of corrupted inputs from a valid input.
func (c *Corruptor) GenerateCorpus(valid []byte, count int) [][]byte {
	corpus := make([][]byte, count)
	for i := range count {
		// Vary the corruption intensity
		intensity := c.rng.Intn(5) + 1
		corpus[i] = c.CorruptN(valid, intensity)
	}
	return corpus
}
