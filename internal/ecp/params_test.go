package ecp

import (
	"encoding/json"
	"math"
	"testing"

	pkgerrors "ecpbench/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParamsValidate(t *testing.T) {
	valid := DefaultBuildParams()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *BuildParams)
	}{
		{"zero percentage", func(p *BuildParams) { p.Percentage = 0 }},
		{"percentage above one", func(p *BuildParams) { p.Percentage = 1.5 }},
		{"nan percentage", func(p *BuildParams) { p.Percentage = math.NaN() }},
		{"zero sc", func(p *BuildParams) { p.SC = 0 }},
		{"span of one", func(p *BuildParams) { p.Span = 1 }},
		{"unknown cpol", func(p *BuildParams) { p.CPol = DescentPolicy(7) }},
		{"unknown npol", func(p *BuildParams) { p.NPol = LeafPolicy(7) }},
		{"negative j", func(p *BuildParams) { p.J = -1 }},
		{"negative replicas", func(p *BuildParams) { p.Replicas = -2 }},
		{"slack below one", func(p *BuildParams) { p.Slack = 0.5 }},
		{"negative workers", func(p *BuildParams) { p.Workers = -1 }},
		{"unknown node policy", func(p *BuildParams) { p.NodePolicy = ReclusterPolicy(5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultBuildParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), pkgerrors.ErrConfiguration)
		})
	}
}

func TestBuildParamsResolved(t *testing.T) {
	p := BuildParams{Percentage: 0.5, SC: 10, Span: 4}.resolved()

	assert.Equal(t, uint64(defaultSeed), p.Seed)
	assert.Positive(t, p.Workers)
	assert.Equal(t, defaultJ, p.J)
	assert.Equal(t, defaultReplicas, p.Replicas)
	assert.Equal(t, defaultSlack, p.Slack)
	assert.Equal(t, Average, p.ClusterPolicy)
	assert.Equal(t, Absolute, p.NodePolicy)
	assert.Equal(t, 1, p.beamWidth())

	p.CPol = NearestJ
	assert.Equal(t, defaultJ, p.beamWidth())
}

func TestBuildParamsJSON(t *testing.T) {
	in := `{"percentage":0.2,"sc":5,"span":4,"cpol":"nearest-j","j":2,"npol":"multi-assign","early_halt":true,"batch_build":false,"node_policy":"average"}`

	var p BuildParams
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	assert.Equal(t, 0.2, p.Percentage)
	assert.Equal(t, NearestJ, p.CPol)
	assert.Equal(t, 2, p.J)
	assert.Equal(t, MultiAssign, p.NPol)
	assert.True(t, p.EarlyHalt)
	assert.False(t, p.BatchBuild)
	assert.Equal(t, Average, p.NodePolicy)

	err := json.Unmarshal([]byte(`{"cpol":"nearest-everything"}`), &p)
	assert.ErrorIs(t, err, pkgerrors.ErrConfiguration)
}

func TestLevelSizes(t *testing.T) {
	assert.Equal(t, []int{1}, levelSizes(1, 4))
	assert.Equal(t, []int{4}, levelSizes(4, 4))
	assert.Equal(t, []int{2, 5, 20}, levelSizes(20, 4))
	assert.Equal(t, []int{10, 100, 1000}, levelSizes(1000, 10))
}

func TestBoundsFor(t *testing.T) {
	assert.Equal(t, bounds{lo: 7, hi: 13}, boundsFor(10))
	assert.Equal(t, bounds{lo: 1, hi: 2}, boundsFor(1))
	assert.Equal(t, bounds{lo: 2, hi: 3}, boundsFor(2))
}
