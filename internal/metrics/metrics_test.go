package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rafaelrc7/idle-inhibitd/internal/graph"
)

func TestSetEffectiveInhibit_RecordsZeroOrOne(t *testing.T) {
	SetEffectiveInhibit(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(EffectiveInhibit))

	SetEffectiveInhibit(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(EffectiveInhibit))
}

func TestSetGraphObjects_SetsEachKindGauge(t *testing.T) {
	SetGraphObjects(map[graph.Kind]int{
		graph.KindNode: 3,
		graph.KindPort: 5,
		graph.KindLink: 2,
	})

	assert.Equal(t, float64(3), testutil.ToFloat64(GraphObjects.WithLabelValues("node")))
	assert.Equal(t, float64(5), testutil.ToFloat64(GraphObjects.WithLabelValues("port")))
	assert.Equal(t, float64(2), testutil.ToFloat64(GraphObjects.WithLabelValues("link")))
}
