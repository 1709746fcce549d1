package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridhouse/internal/store"
)

func TestClassifyBasicVerbs(t *testing.T) {
	assert.Equal(t, StringSet{Key: "k", Value: "v"}, Classify([]string{"SET", "k", "v"}))
	assert.Equal(t, StringSet{Key: "k", Value: "v"}, Classify([]string{"set", "k", "v"}))
	assert.Equal(t, StringGet{Key: "k"}, Classify([]string{"GET", "k"}))
	assert.Equal(t, ListLength{Key: "k"}, Classify([]string{"LLEN", "k"}))
	assert.Equal(t, Ping{}, Classify([]string{"PING"}))
	assert.Equal(t, Ping{Payload: "hi", HasPayload: true}, Classify([]string{"PING", "hi"}))
}

func TestClassifyUnknownVerb(t *testing.T) {
	cmd := Classify([]string{"FROBNICATE", "x"})
	u, ok := cmd.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "FROBNICATE", u.Verb)
}

func TestClassifyListPushVariants(t *testing.T) {
	assert.Equal(t, ListAppend{Key: "k", Items: []string{"a", "b"}}, Classify([]string{"RPUSH", "k", "a", "b"}))
	assert.Equal(t, ListAppend{Key: "k", Items: []string{"a"}, OnlyIfExists: true}, Classify([]string{"RPUSHX", "k", "a"}))
	assert.Equal(t, ListPrepend{Key: "k", Items: []string{"a"}}, Classify([]string{"LPUSH", "k", "a"}))
}

func TestClassifyZAddNoOptions(t *testing.T) {
	cmd := Classify([]string{"ZADD", "k", "1", "a", "2", "b", "3", "c"})
	z, ok := cmd.(ZAdd)
	require.True(t, ok)
	assert.Equal(t, "k", z.Key)
	require.Len(t, z.Entries, 3)
	assert.Equal(t, store.ScoredMember{Score: 1, Member: "a"}, z.Entries[0])
	assert.False(t, z.Options.Diverged)
}

func TestClassifyZAddXXGT(t *testing.T) {
	cmd := Classify([]string{"ZADD", "k", "XX", "GT", "CH", "5", "a"})
	z, ok := cmd.(ZAdd)
	require.True(t, ok)
	assert.Equal(t, store.AddOnlyExisting, z.Options.Only)
	assert.Equal(t, store.AddWhenGreater, z.Options.When)
	assert.True(t, z.Options.Changed)
	require.Len(t, z.Entries, 1)
	assert.Equal(t, "a", z.Entries[0].Member)
}

func TestClassifyZAddCaseInsensitiveOptions(t *testing.T) {
	cmd := Classify([]string{"ZADD", "k", "xx", "gt", "5", "a"})
	z, ok := cmd.(ZAdd)
	require.True(t, ok)
	assert.Equal(t, store.AddOnlyExisting, z.Options.Only)
	assert.Equal(t, store.AddWhenGreater, z.Options.When)
}

func TestClassifyZAddBadCombinationDiverges(t *testing.T) {
	cmd := Classify([]string{"ZADD", "k", "NX", "XX", "1", "a"})
	z, ok := cmd.(ZAdd)
	require.True(t, ok)
	assert.True(t, z.Options.Diverged)
}

func TestClassifyScanOptions(t *testing.T) {
	cmd := Classify([]string{"SCAN", "0", "MATCH", "user:*", "COUNT", "50", "TYPE", "string"})
	s, ok := cmd.(Scan)
	require.True(t, ok)
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, "user:*", s.Pattern)
	assert.Equal(t, 50, s.Count)
	assert.Equal(t, "string", s.Type)
}

func TestClassifyInvalidInputOnBadInteger(t *testing.T) {
	cmd := Classify([]string{"EXPIRE", "k", "notanumber"})
	_, ok := cmd.(InvalidInput)
	assert.True(t, ok)
}

func TestClassifyGenericOps(t *testing.T) {
	assert.Equal(t, Ttl{Key: "k"}, Classify([]string{"TTL", "k"}))
	assert.Equal(t, Expire{Key: "k", Seconds: 5}, Classify([]string{"EXPIRE", "k", "5"}))
	assert.Equal(t, Exists{Key: "k"}, Classify([]string{"EXISTS", "k"}))
	assert.Equal(t, Type{Key: "k"}, Classify([]string{"TYPE", "k"}))
	assert.Equal(t, Keys{Pattern: "*"}, Classify([]string{"KEYS", "*"}))
}

func TestIsWrite(t *testing.T) {
	assert.True(t, IsWrite(StringSet{}))
	assert.True(t, IsWrite(ListAppend{}))
	assert.True(t, IsWrite(ZAdd{}))
	assert.True(t, IsWrite(Expire{}))
	assert.False(t, IsWrite(StringGet{}))
	assert.False(t, IsWrite(Ttl{}))
}
