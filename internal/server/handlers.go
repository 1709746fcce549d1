// Package server implements the executor (C8): per-connection command
// dispatch over the State Context, per spec.md §4.7.
package server

import (
	"sort"
	"strconv"
	"time"

	"gridhouse/internal/cmd"
	"gridhouse/internal/resp"
	"gridhouse/internal/state"
	"gridhouse/internal/store"
)

const redisVersionPlaceholder = "redis_version:7.0.9"

// Dispatch routes ctx to its handler, choosing the shared-read or
// exclusive-write path per cmd.IsWrite — a static property of the
// command variant, never an ad-hoc runtime decision.
func Dispatch(sc *state.Context, ctx cmd.Context) resp.Message {
	if cmd.IsWrite(ctx.Command) {
		msg, err := sc.ApplyTransaction(ctx, func(ds *store.Dataset, ttl *store.TTLIndex) resp.Message {
			return handleWrite(sc, ds, ttl, ctx.Command)
		})
		if err != nil {
			return resp.Errf("durability failure: %v", err)
		}
		return msg
	}
	return sc.ForReading(func(ds *store.Dataset, ttl *store.TTLIndex) resp.Message {
		return handleRead(sc, ds, ttl, ctx.Command)
	})
}

func wrongType() resp.Message {
	return resp.Named("WRONGTYPE", "Operation against a key holding the wrong kind of value")
}

// handleWrite implements every command classified as a write (§4.2,
// cmd.IsWrite): StringSet, ListAppend, ListPrepend, ListSet, ZAdd,
// Expire, BgSave.
func handleWrite(sc *state.Context, ds *store.Dataset, ttl *store.TTLIndex, command cmd.Command) resp.Message {
	switch c := command.(type) {
	case cmd.StringSet:
		if _, isList := ds.Lists[c.Key]; isList {
			delete(ds.Lists, c.Key)
		}
		if _, isSet := ds.SortedSets[c.Key]; isSet {
			delete(ds.SortedSets, c.Key)
		}
		ds.Strings[c.Key] = c.Value
		ttl.DropTTL(c.Key)
		return resp.SimpleString("OK")

	case cmd.ListAppend:
		if t, ok := ds.KeyType(c.Key); ok && t != "list" {
			return wrongType()
		}
		l := ds.ListFor(c.Key, c.OnlyIfExists)
		if l == nil {
			return resp.Integer(0)
		}
		for _, item := range c.Items {
			l.PushBack(item)
		}
		return resp.Integer(int64(l.Len()))

	case cmd.ListPrepend:
		if t, ok := ds.KeyType(c.Key); ok && t != "list" {
			return wrongType()
		}
		l := ds.ListFor(c.Key, c.OnlyIfExists)
		if l == nil {
			return resp.Integer(0)
		}
		for _, item := range c.Items {
			l.PushFront(item)
		}
		return resp.Integer(int64(l.Len()))

	case cmd.ListSet:
		if t, ok := ds.KeyType(c.Key); ok && t != "list" {
			return wrongType()
		}
		l := ds.ListOrNil(c.Key)
		if l == nil || !l.Set(c.Index, c.Value) {
			return resp.Errf("Index out of range")
		}
		return resp.SimpleString("OK")

	case cmd.ZAdd:
		if t, ok := ds.KeyType(c.Key); ok && t != "zset" {
			return wrongType()
		}
		zs := ds.SortedSetFor(c.Key)
		count, err := zs.Add(c.Entries, c.Options)
		if err != nil {
			return resp.Errf("%v", err)
		}
		return resp.Integer(count)

	case cmd.Expire:
		if !ds.Exists(c.Key) {
			return resp.Integer(0)
		}
		ttl.RegisterTTL(c.Key, time.Now(), time.Duration(c.Seconds)*time.Second)
		return resp.Integer(1)

	case cmd.BgSave:
		if _, err := sc.Snapshot(); err != nil {
			return resp.Errf("background save failed: %v", err)
		}
		return resp.SimpleString("OK")

	default:
		return resp.Errf("internal error: unhandled write command")
	}
}

// handleRead implements every non-write command, including the
// connection/server-management commands that never touch the dataset.
func handleRead(sc *state.Context, ds *store.Dataset, ttl *store.TTLIndex, command cmd.Command) resp.Message {
	switch c := command.(type) {
	case cmd.SetClientName:
		return resp.SimpleString("OK")
	case cmd.SelectDatabase:
		return resp.SimpleString("OK")
	case cmd.Ping:
		if c.HasPayload {
			return resp.BulkString(c.Payload)
		}
		return resp.SimpleString("PONG")

	case cmd.DbSize:
		return resp.Integer(int64(len(ds.Keys())))

	case cmd.CommandIntrospect:
		return resp.Named("ERR", "Unsupported command `COMMAND`")

	case cmd.Info:
		return handleInfo(ds, c)

	case cmd.Keys:
		matched := make([]string, 0)
		for _, k := range ds.Keys() {
			if store.MatchGlob(c.Pattern, k) {
				matched = append(matched, k)
			}
		}
		return resp.BulkArray(matched)

	case cmd.Scan:
		return handleScan(ds, c)

	case cmd.Ttl:
		remaining, ok := ttl.TTLRemaining(c.Key, time.Now())
		if !ds.Exists(c.Key) {
			return resp.Integer(-2)
		}
		if !ok {
			return resp.Integer(-1)
		}
		seconds := int64(remaining.Seconds())
		if seconds < 0 {
			seconds = 0
		}
		return resp.Integer(seconds)

	case cmd.Exists:
		if ds.Exists(c.Key) {
			return resp.Integer(1)
		}
		return resp.Integer(0)

	case cmd.Type:
		t, ok := ds.KeyType(c.Key)
		if !ok {
			return resp.SimpleString("none")
		}
		return resp.SimpleString(t)

	case cmd.ListLength:
		if t, ok := ds.KeyType(c.Key); ok && t != "list" {
			return wrongType()
		}
		return resp.Integer(int64(ds.ListOrNil(c.Key).Len()))

	case cmd.ListRange:
		if t, ok := ds.KeyType(c.Key); ok && t != "list" {
			return wrongType()
		}
		l := ds.ListOrNil(c.Key)
		if l == nil {
			return resp.BulkArray(nil)
		}
		return resp.BulkArray(l.Range(c.Start, c.Stop))

	case cmd.StringGet:
		v, ok := ds.GetString(c.Key)
		if !ok {
			return resp.Nil()
		}
		return resp.BulkString(v)

	case cmd.StringMGet:
		out := make([]resp.Message, len(c.Keys))
		for i, k := range c.Keys {
			if v, ok := ds.GetString(k); ok {
				out[i] = resp.BulkString(v)
			} else {
				out[i] = resp.Nil()
			}
		}
		return resp.ArrayOf(out...)

	case cmd.ZRangeByRank:
		if t, ok := ds.KeyType(c.Key); ok && t != "zset" {
			return wrongType()
		}
		zs := ds.SortedSetOrNil(c.Key)
		if zs == nil {
			return resp.BulkArray(nil)
		}
		entries := zs.RangeByRank(c.Start, c.Stop)
		members := make([]string, len(entries))
		for i, e := range entries {
			members[i] = e.Member
		}
		return resp.BulkArray(members)

	case cmd.ZRank:
		if t, ok := ds.KeyType(c.Key); ok && t != "zset" {
			return wrongType()
		}
		zs := ds.SortedSetOrNil(c.Key)
		if zs == nil {
			return resp.Nil()
		}
		entry, ok := zs.MemberStats(c.Member)
		if !ok {
			return resp.Nil()
		}
		return resp.Integer(int64(entry.Rank))

	case cmd.ZScore:
		if t, ok := ds.KeyType(c.Key); ok && t != "zset" {
			return wrongType()
		}
		zs := ds.SortedSetOrNil(c.Key)
		if zs == nil {
			return resp.Nil()
		}
		score, ok := zs.Score(c.Member)
		if !ok {
			return resp.Nil()
		}
		return resp.BulkString(strconv.FormatFloat(score, 'g', -1, 64))

	case cmd.ZRangeByScore:
		if t, ok := ds.KeyType(c.Key); ok && t != "zset" {
			return wrongType()
		}
		zs := ds.SortedSetOrNil(c.Key)
		if zs == nil {
			return resp.BulkArray(nil)
		}
		entries := zs.RangeByScore(c.Lo, c.Hi)
		members := make([]string, len(entries))
		for i, e := range entries {
			members[i] = e.Member
		}
		return resp.BulkArray(members)

	case cmd.Unknown:
		return resp.Errf("Unsupported command string `%s`", c.Verb)

	case cmd.InvalidInput:
		return resp.Errf("%s", c.Reason)

	default:
		return resp.Errf("internal error: unhandled command")
	}
}

func handleInfo(ds *store.Dataset, c cmd.Info) resp.Message {
	switch c.Topic {
	case cmd.InfoServer:
		return resp.BulkString("# Server\r\n" + redisVersionPlaceholder + "\r\n")
	case cmd.InfoKeyspace:
		n := len(ds.Keys())
		return resp.BulkString("# Keyspace\r\ndb0:keys=" + strconv.Itoa(n) + ",expires=0,avg_ttl=0\r\n")
	default:
		// Unknown topic: documented quirk (spec.md §9) — a placeholder
		// bulk string, not an error.
		return resp.BulkString("# " + c.Name + "\r\n")
	}
}

func handleScan(ds *store.Dataset, c cmd.Scan) resp.Message {
	keys := ds.Keys()
	sort.Strings(keys)
	// Cursor progression is a linear walk over the concatenated key
	// list; it is not required to be stable across mutations
	// (spec.md §9).
	count := 10
	if c.HasCount {
		count = c.Count
	}
	start := c.Cursor
	if start < 0 || start >= len(keys) {
		return resp.ArrayOf(resp.Integer(0), resp.BulkArray(nil))
	}
	end := start + count
	if end > len(keys) {
		end = len(keys)
	}
	page := keys[start:end]
	matched := make([]string, 0, len(page))
	for _, k := range page {
		if c.HasPattern && !store.MatchGlob(c.Pattern, k) {
			continue
		}
		if c.HasType {
			t, _ := ds.KeyType(k)
			if t != c.Type {
				continue
			}
		}
		matched = append(matched, k)
	}
	nextCursor := int64(0)
	if end < len(keys) {
		nextCursor = int64(end)
	}
	return resp.ArrayOf(resp.Integer(nextCursor), resp.BulkArray(matched))
}
