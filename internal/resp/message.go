// Package resp implements the wire codec: framing and unframing of the
// array-of-bulk-strings protocol messages that cross the socket boundary.
package resp

import "fmt"

// Kind tags the variant held by a Message.
type Kind int

const (
	KindSimpleString Kind = iota
	KindError
	KindInteger
	KindBulkString
	KindArray
	KindNil
)

// ErrorPrefix classifies the leading word of an Error message.
type ErrorPrefix int

const (
	// ErrorPrefixEmpty means the line carried no leading word before a
	// space; the whole line is the message text.
	ErrorPrefixEmpty ErrorPrefix = iota
	// ErrorPrefixErr is the canonical "ERR" prefix.
	ErrorPrefixErr
	// ErrorPrefixNamed is any other leading word, treated as a named
	// error class (e.g. "WRONGTYPE").
	ErrorPrefixNamed
)

// Message is the value-typed wire currency: a tagged sum with variants
// SimpleString, Error{prefix,text}, Integer, BulkString, Array and Nil.
// Messages carry no identity; equality is structural.
type Message struct {
	Kind Kind

	Str string // SimpleString text, BulkString payload

	ErrPrefix ErrorPrefix // Error only
	ErrName   string      // Error only, set when ErrPrefix == ErrorPrefixNamed
	ErrText   string      // Error only, text following the prefix

	Int int64 // Integer

	Array []Message // Array elements (nil slice distinct from empty slice is not significant)
}

// SimpleString builds a SimpleString message.
func SimpleString(s string) Message {
	return Message{Kind: KindSimpleString, Str: s}
}

// Integer builds an Integer message.
func Integer(i int64) Message {
	return Message{Kind: KindInteger, Int: i}
}

// BulkString builds a BulkString message.
func BulkString(s string) Message {
	return Message{Kind: KindBulkString, Str: s}
}

// Nil builds the Nil message. Responses always use the bulk-string nil
// encoding ($-1\r\n) regardless of whether this represents a missing
// array or a missing scalar (see Encode).
func Nil() Message {
	return Message{Kind: KindNil}
}

// ArrayOf builds an Array message from the given elements.
func ArrayOf(elems ...Message) Message {
	return Message{Kind: KindArray, Array: elems}
}

// BulkArray builds an Array of BulkString elements, the shape every
// inbound command takes and many responses (KEYS, LRANGE, ...) take too.
func BulkArray(ss []string) Message {
	arr := make([]Message, len(ss))
	for i, s := range ss {
		arr[i] = BulkString(s)
	}
	return Message{Kind: KindArray, Array: arr}
}

// Err builds an Error message, splitting the canonical "PREFIX text" form
// the way original_source's make_error does: split on the first space; if
// the leading word is "ERR" it is canonical, any other leading word is a
// named error class, and the absence of a space means the whole line is
// the message with an empty prefix.
func Err(line string) Message {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			word, rest := line[:i], line[i+1:]
			if word == "ERR" {
				return Message{Kind: KindError, ErrPrefix: ErrorPrefixErr, ErrText: rest}
			}
			return Message{Kind: KindError, ErrPrefix: ErrorPrefixNamed, ErrName: word, ErrText: rest}
		}
	}
	return Message{Kind: KindError, ErrPrefix: ErrorPrefixEmpty, ErrText: line}
}

// Errf builds a canonical ERR-prefixed error message.
func Errf(format string, args ...any) Message {
	return Err("ERR " + fmt.Sprintf(format, args...))
}

// Named builds an error message with an explicit named prefix, e.g.
// Named("WRONGTYPE", "Operation against a key holding the wrong kind of value").
func Named(prefix, text string) Message {
	return Message{Kind: KindError, ErrPrefix: ErrorPrefixNamed, ErrName: prefix, ErrText: text}
}

// Line renders the wire-level "PREFIX text" form of an Error message.
func (m Message) Line() string {
	switch m.ErrPrefix {
	case ErrorPrefixErr:
		return "ERR " + m.ErrText
	case ErrorPrefixNamed:
		return m.ErrName + " " + m.ErrText
	default:
		return m.ErrText
	}
}

// IsError reports whether m is an Error message.
func (m Message) IsError() bool { return m.Kind == KindError }

// Equal reports structural equality, used by codec round-trip tests.
func (m Message) Equal(o Message) bool {
	if m.Kind != o.Kind {
		return false
	}
	switch m.Kind {
	case KindSimpleString, KindBulkString:
		return m.Str == o.Str
	case KindError:
		return m.ErrPrefix == o.ErrPrefix && m.ErrName == o.ErrName && m.ErrText == o.ErrText
	case KindInteger:
		return m.Int == o.Int
	case KindNil:
		return true
	case KindArray:
		if len(m.Array) != len(o.Array) {
			return false
		}
		for i := range m.Array {
			if !m.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Strings extracts a bulk array's elements as plain strings. ok is false
// if m is not an Array of BulkStrings (the shape every inbound command
// and every logged write transaction takes).
func (m Message) Strings() (out []string, ok bool) {
	if m.Kind != KindArray {
		return nil, false
	}
	out = make([]string, len(m.Array))
	for i, el := range m.Array {
		if el.Kind != KindBulkString {
			return nil, false
		}
		out[i] = el.Str
	}
	return out, true
}
