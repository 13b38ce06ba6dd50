package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DrainInOrder(t *testing.T) {
	q := NewQueue()
	var calls []string

	q.Post(Diagnostic{Title: "first"})
	q.Call(func() { calls = append(calls, "flush") })
	q.Post(Diagnostic{Title: "second", Severity: SeverityFatal})

	var c Collector
	n := q.Drain(&c)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first", "second"}, c.Titles())
	assert.Equal(t, []string{"flush"}, calls)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_NeverDrops(t *testing.T) {
	q := NewQueue()
	const workers, per = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				q.Post(Diagnostic{Title: "x"})
			}
		}()
	}
	wg.Wait()

	select {
	case <-q.Notify():
	default:
		t.Fatal("expected a pending notification")
	}

	var c Collector
	assert.Equal(t, workers*per, q.Drain(&c))
}

func TestQueue_CallPostedWhileDraining(t *testing.T) {
	q := NewQueue()
	ran := false
	q.Call(func() {
		q.Call(func() { ran = true })
	})
	q.Drain(nil)
	assert.True(t, ran)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Title:    "Error validating data core.",
		Message:  "Found a core without id attribute.",
		Items:    []string{"cores.yml"},
	}
	s := d.String()
	require.Contains(t, s, "[error] Error validating data core.")
	assert.Contains(t, s, "\n  cores.yml")
}
