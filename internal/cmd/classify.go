package cmd

import (
	"strconv"
	"strings"

	"gridhouse/internal/store"
)

// Classify maps a decoded bulk array into the typed command algebra.
// Matching is case-insensitive on the verb and on keyword-style argument
// tokens, per spec.md §4.2.
func Classify(args []string) Command {
	if len(args) == 0 {
		return Unknown{Verb: ""}
	}
	verb := upper(args[0])
	rest := args[1:]

	switch verb {
	case "CLIENT":
		return classifyClient(rest)
	case "SELECT":
		return classifySelect(rest)
	case "PING":
		return classifyPing(rest)

	case "DBSIZE":
		return DbSize{}
	case "COMMAND":
		return classifyCommandDocs(rest)
	case "INFO":
		return classifyInfo(rest)
	case "BGSAVE":
		return BgSave{}

	case "KEYS":
		return classifyKeys(rest)
	case "SCAN":
		return classifyScan(rest)
	case "TTL":
		return classifyTtl(rest)
	case "EXPIRE":
		return classifyExpire(rest)
	case "EXISTS":
		return classifyExists(rest)
	case "TYPE":
		return classifyType(rest)

	case "LLEN":
		return classifyListLength(rest)
	case "RPUSH":
		return classifyListAppend(rest, false)
	case "RPUSHX":
		return classifyListAppend(rest, true)
	case "LPUSH":
		return classifyListPrepend(rest, false)
	case "LPUSHX":
		return classifyListPrepend(rest, true)
	case "LSET":
		return classifyListSet(rest)
	case "LRANGE":
		return classifyListRange(rest)

	case "SET":
		return classifyStringSet(rest)
	case "GET":
		return classifyStringGet(rest)
	case "MGET":
		return classifyStringMGet(rest)

	case "ZADD":
		return classifyZAdd(rest)
	case "ZRANGE":
		return classifyZRangeByRank(rest)
	case "ZRANGEBYSCORE":
		return classifyZRangeByScore(rest)
	case "ZRANK":
		return classifyZRank(rest)
	case "ZSCORE":
		return classifyZScore(rest)

	default:
		return Unknown{Verb: args[0]}
	}
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func classifyClient(rest []string) Command {
	if len(rest) >= 1 && upper(rest[0]) == "SETNAME" {
		name := ""
		if len(rest) >= 2 {
			name = rest[1]
		}
		return SetClientName{Name: name}
	}
	return SetClientName{}
}

func classifySelect(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "SELECT requires exactly one argument"}
	}
	n, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return InvalidInput{Reason: "value is not an integer or out of range"}
	}
	return SelectDatabase{Index: n}
}

func classifyPing(rest []string) Command {
	if len(rest) == 0 {
		return Ping{}
	}
	return Ping{Payload: rest[0], HasPayload: true}
}

func classifyCommandDocs(rest []string) Command {
	for _, a := range rest {
		if upper(a) == "DOCS" {
			return CommandIntrospect{Docs: true}
		}
	}
	return CommandIntrospect{}
}

func classifyInfo(rest []string) Command {
	if len(rest) == 0 {
		return Info{Topic: InfoServer}
	}
	switch upper(rest[0]) {
	case "SERVER":
		return Info{Topic: InfoServer}
	case "KEYSPACE":
		return Info{Topic: InfoKeyspace}
	default:
		return Info{Topic: InfoNamed, Name: rest[0]}
	}
}

func classifyKeys(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "KEYS requires exactly one argument"}
	}
	return Keys{Pattern: rest[0]}
}

func classifyScan(rest []string) Command {
	if len(rest) == 0 {
		return InvalidInput{Reason: "SCAN requires a cursor"}
	}
	cursor, err := strconv.Atoi(rest[0])
	if err != nil {
		return InvalidInput{Reason: "invalid cursor"}
	}
	s := Scan{Cursor: cursor}
	i := 1
	for i < len(rest) {
		switch upper(rest[i]) {
		case "MATCH":
			if i+1 >= len(rest) {
				return InvalidInput{Reason: "syntax error"}
			}
			s.Pattern, s.HasPattern = rest[i+1], true
			i += 2
		case "COUNT":
			if i+1 >= len(rest) {
				return InvalidInput{Reason: "syntax error"}
			}
			n, err := strconv.Atoi(rest[i+1])
			if err != nil {
				return InvalidInput{Reason: "value is not an integer or out of range"}
			}
			s.Count, s.HasCount = n, true
			i += 2
		case "TYPE":
			if i+1 >= len(rest) {
				return InvalidInput{Reason: "syntax error"}
			}
			s.Type, s.HasType = rest[i+1], true
			i += 2
		default:
			return InvalidInput{Reason: "syntax error"}
		}
	}
	return s
}

func classifyTtl(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "TTL requires exactly one argument"}
	}
	return Ttl{Key: rest[0]}
}

func classifyExpire(rest []string) Command {
	if len(rest) != 2 {
		return InvalidInput{Reason: "EXPIRE requires key and seconds"}
	}
	n, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return InvalidInput{Reason: "value is not an integer or out of range"}
	}
	return Expire{Key: rest[0], Seconds: n}
}

func classifyExists(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "EXISTS requires exactly one argument"}
	}
	return Exists{Key: rest[0]}
}

func classifyType(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "TYPE requires exactly one argument"}
	}
	return Type{Key: rest[0]}
}

func classifyListLength(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "LLEN requires exactly one argument"}
	}
	return ListLength{Key: rest[0]}
}

func classifyListAppend(rest []string, onlyIfExists bool) Command {
	if len(rest) < 2 {
		return InvalidInput{Reason: "wrong number of arguments"}
	}
	return ListAppend{Key: rest[0], Items: rest[1:], OnlyIfExists: onlyIfExists}
}

func classifyListPrepend(rest []string, onlyIfExists bool) Command {
	if len(rest) < 2 {
		return InvalidInput{Reason: "wrong number of arguments"}
	}
	return ListPrepend{Key: rest[0], Items: rest[1:], OnlyIfExists: onlyIfExists}
}

func classifyListSet(rest []string) Command {
	if len(rest) != 3 {
		return InvalidInput{Reason: "LSET requires key, index and value"}
	}
	idx, err := strconv.Atoi(rest[1])
	if err != nil {
		return InvalidInput{Reason: "value is not an integer or out of range"}
	}
	return ListSet{Key: rest[0], Index: idx, Value: rest[2]}
}

func classifyListRange(rest []string) Command {
	if len(rest) != 3 {
		return InvalidInput{Reason: "LRANGE requires key, start and stop"}
	}
	start, err1 := strconv.Atoi(rest[1])
	stop, err2 := strconv.Atoi(rest[2])
	if err1 != nil || err2 != nil {
		return InvalidInput{Reason: "value is not an integer or out of range"}
	}
	return ListRange{Key: rest[0], Start: start, Stop: stop}
}

func classifyStringSet(rest []string) Command {
	if len(rest) < 2 {
		return InvalidInput{Reason: "wrong number of arguments for 'set' command"}
	}
	return StringSet{Key: rest[0], Value: rest[1]}
}

func classifyStringGet(rest []string) Command {
	if len(rest) != 1 {
		return InvalidInput{Reason: "wrong number of arguments for 'get' command"}
	}
	return StringGet{Key: rest[0]}
}

func classifyStringMGet(rest []string) Command {
	if len(rest) < 1 {
		return InvalidInput{Reason: "wrong number of arguments for 'mget' command"}
	}
	return StringMGet{Keys: rest}
}

// classifyZAdd parses the key, the option prefix, and the (score,member)
// pairs exactly the way original_source's AddArgsParser does: once a word
// fails to parse as an option token, every remaining word (including that
// one) is treated as an entry, never re-considered as an option.
func classifyZAdd(rest []string) Command {
	if len(rest) < 3 {
		return InvalidInput{Reason: "wrong number of arguments for 'zadd' command"}
	}
	key := rest[0]
	words := rest[1:]

	var optWords []string
	var entryWords []string
	inEntries := false
	for _, w := range words {
		if inEntries {
			entryWords = append(entryWords, w)
			continue
		}
		if _, ok := store.ParseAddOption(w); ok {
			optWords = append(optWords, w)
		} else {
			inEntries = true
			entryWords = append(entryWords, w)
		}
	}

	opts := store.AddOptions{}
	for _, w := range optWords {
		o, _ := store.ParseAddOption(w)
		opts = store.CombineAddOptions(opts, o)
	}

	if len(entryWords)%2 != 0 || len(entryWords) == 0 {
		return InvalidInput{Reason: "syntax error"}
	}
	entries := make([]store.ScoredMember, 0, len(entryWords)/2)
	for i := 0; i < len(entryWords); i += 2 {
		score, err := strconv.ParseFloat(entryWords[i], 64)
		if err != nil {
			return InvalidInput{Reason: "value is not a valid float"}
		}
		entries = append(entries, store.ScoredMember{Score: score, Member: entryWords[i+1]})
	}
	return ZAdd{Key: key, Entries: entries, Options: opts}
}

func classifyZRangeByRank(rest []string) Command {
	if len(rest) != 3 {
		return InvalidInput{Reason: "ZRANGE requires key, start and stop"}
	}
	start, err1 := strconv.Atoi(rest[1])
	stop, err2 := strconv.Atoi(rest[2])
	if err1 != nil || err2 != nil {
		return InvalidInput{Reason: "value is not an integer or out of range"}
	}
	return ZRangeByRank{Key: rest[0], Start: start, Stop: stop}
}

func classifyZRangeByScore(rest []string) Command {
	if len(rest) != 3 {
		return InvalidInput{Reason: "ZRANGEBYSCORE requires key, min and max"}
	}
	lo, err1 := strconv.ParseFloat(rest[1], 64)
	hi, err2 := strconv.ParseFloat(rest[2], 64)
	if err1 != nil || err2 != nil {
		return InvalidInput{Reason: "min or max is not a float"}
	}
	return ZRangeByScore{Key: rest[0], Lo: lo, Hi: hi}
}

func classifyZRank(rest []string) Command {
	if len(rest) != 2 {
		return InvalidInput{Reason: "ZRANK requires key and member"}
	}
	return ZRank{Key: rest[0], Member: rest[1]}
}

func classifyZScore(rest []string) Command {
	if len(rest) != 2 {
		return InvalidInput{Reason: "ZSCORE requires key and member"}
	}
	return ZScore{Key: rest[0], Member: rest[1]}
}
