package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_DispatchInRegistrationOrder(t *testing.T) {
	r := NewRegistry[int]()
	var got []string
	r.Add(func(v int) { got = append(got, "a") })
	r.Add(func(v int) { got = append(got, "b") })
	r.Add(func(v int) { got = append(got, "c") })

	r.Dispatch(1)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRegistry_RemoveIsIdempotentAndExact(t *testing.T) {
	r := NewRegistry[int]()
	same := func(int) {}
	removeFirst := r.Add(same)
	r.Add(same)
	assert.Equal(t, 2, r.Len())

	removeFirst()
	removeFirst()
	assert.Equal(t, 1, r.Len(), "removing twice must not drop the other registration of the same func")
}

func TestRegistry_HandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry[string]()
	var calls []string
	var remove func()
	remove = r.Add(func(v string) {
		calls = append(calls, "self:"+v)
		remove()
	})
	r.Add(func(v string) { calls = append(calls, "other:"+v) })

	r.Dispatch("1")
	r.Dispatch("2")

	assert.Equal(t, []string{"self:1", "other:1", "other:2"}, calls)
}
