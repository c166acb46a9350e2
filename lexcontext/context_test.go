package lexcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyStackDefaultsToRoot(t *testing.T) {
	s := New()
	assert.Equal(t, Root, s.CurrentKind())
	assert.Equal(t, "configuration", s.CurrentDesc())
	assert.Equal(t, 0, s.Depth())
}

func TestPushPopBalancesDepth(t *testing.T) {
	s := New()
	s.Push(Source, nil, "source")
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, Source, s.CurrentKind())

	s.Push(Destination, nil, "destination")
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, Destination, s.CurrentKind())

	s.Pop()
	assert.Equal(t, Source, s.CurrentKind())
	s.Pop()
	assert.Equal(t, Root, s.CurrentKind())
}

func TestPopOnEmptyStackIsNoOp(t *testing.T) {
	s := New()
	s.Pop()
	assert.Equal(t, 0, s.Depth())
}

func TestGuardPopsOnReturnedClosure(t *testing.T) {
	s := New()
	pop := s.Guard(Filter, nil, "filter")
	assert.Equal(t, Filter, s.CurrentKind())
	pop()
	assert.Equal(t, Root, s.CurrentKind())
}

func TestWalkTopVisitsTopDown(t *testing.T) {
	s := New()
	s.Push(Source, KeywordTable{"src_kw": {ID: 1}}, "source")
	s.Push(Destination, KeywordTable{"dst_kw": {ID: 2}}, "destination")

	var seenOrder []string
	s.WalkTop(func(kw KeywordTable) bool {
		for name := range kw {
			seenOrder = append(seenOrder, name)
		}
		return false
	})
	assert.Equal(t, []string{"dst_kw", "src_kw"}, seenOrder)
}

func TestWalkTopStopsOnTrue(t *testing.T) {
	s := New()
	s.Push(Source, KeywordTable{"src_kw": {ID: 1}}, "source")
	s.Push(Destination, KeywordTable{"dst_kw": {ID: 2}}, "destination")

	visited := 0
	s.WalkTop(func(kw KeywordTable) bool {
		visited++
		return true
	})
	assert.Equal(t, 1, visited)
}

func TestLookupKindByNameRoundTrip(t *testing.T) {
	assert.Equal(t, Destination, LookupKindByName("destination"))
	assert.Equal(t, "destination", LookupName(Destination))
	assert.Equal(t, Root, LookupKindByName("no-such-context"))
}
