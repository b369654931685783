package ecp

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	pkgerrors "ecpbench/pkg/errors"
)

// DescentPolicy controls how a point walks the tree during assignment.
type DescentPolicy int

const (
	// NearestOne follows the single closest leader at every level.
	NearestOne DescentPolicy = iota
	// NearestJ keeps a beam of the J closest leaders per level.
	NearestJ
)

// LeafPolicy controls how many leaves a point is stored in.
type LeafPolicy int

const (
	// Strict stores each point in exactly one leaf.
	Strict LeafPolicy = iota
	// MultiAssign stores a point in every candidate leaf close enough to the best one.
	MultiAssign
)

// ReclusterPolicy decides when a node is split during incremental construction.
// The zero value selects the default for the node kind.
type ReclusterPolicy int

const (
	policyDefault ReclusterPolicy = iota
	// Average reclusters when the mean size of a parent's children exceeds the hi bound.
	Average
	// Absolute reclusters as soon as one child exceeds the hi bound.
	Absolute
)

const (
	defaultSeed     = 1
	defaultJ        = 3
	defaultReplicas = 2
	defaultSlack    = 1.25
)

// BuildParams is the full set of construction knobs. Zero values of the optional
// fields (Seed, Workers, J, Replicas, Slack and the recluster policies) select
// defaults; Percentage, SC and Span must always be set.
type BuildParams struct {
	Percentage    float64         `json:"percentage" yaml:"percentage"`
	SC            int             `json:"sc" yaml:"sc"`
	Span          int             `json:"span" yaml:"span"`
	CPol          DescentPolicy   `json:"cpol" yaml:"cpol"`
	J             int             `json:"j,omitempty" yaml:"j"`
	NPol          LeafPolicy      `json:"npol" yaml:"npol"`
	Replicas      int             `json:"replicas,omitempty" yaml:"replicas"`
	Slack         float64         `json:"slack,omitempty" yaml:"slack"`
	EarlyHalt     bool            `json:"early_halt" yaml:"early_halt"`
	BatchBuild    bool            `json:"batch_build" yaml:"batch_build"`
	Seed          uint64          `json:"seed,omitempty" yaml:"seed"`
	Workers       int             `json:"workers,omitempty" yaml:"workers"`
	ClusterPolicy ReclusterPolicy `json:"cluster_policy,omitempty" yaml:"cluster_policy"`
	NodePolicy    ReclusterPolicy `json:"node_policy,omitempty" yaml:"node_policy"`
}

// DefaultBuildParams returns the parameters used when a caller supplies none.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		Percentage: 1.0,
		SC:         100,
		Span:       10,
		CPol:       NearestOne,
		J:          defaultJ,
		NPol:       Strict,
		Replicas:   defaultReplicas,
		Slack:      defaultSlack,
		BatchBuild: true,
		Seed:       defaultSeed,
	}
}

// Validate reports the first degenerate setting, wrapped in ErrConfiguration.
func (p BuildParams) Validate() error {
	switch {
	case math.IsNaN(p.Percentage) || p.Percentage <= 0 || p.Percentage > 1:
		return configErr("percentage must be in (0, 1], got %v", p.Percentage)
	case p.SC < 1:
		return configErr("sc must be at least 1, got %d", p.SC)
	case p.Span < 2:
		return configErr("span must be at least 2, got %d", p.Span)
	case p.CPol != NearestOne && p.CPol != NearestJ:
		return configErr("unknown cpol %d", int(p.CPol))
	case p.NPol != Strict && p.NPol != MultiAssign:
		return configErr("unknown npol %d", int(p.NPol))
	case p.J < 0:
		return configErr("j must be positive, got %d", p.J)
	case p.Replicas < 0:
		return configErr("replicas must be positive, got %d", p.Replicas)
	case p.Slack != 0 && (math.IsNaN(p.Slack) || p.Slack < 1):
		return configErr("slack must be at least 1, got %v", p.Slack)
	case p.Workers < 0:
		return configErr("workers must not be negative, got %d", p.Workers)
	case p.ClusterPolicy < policyDefault || p.ClusterPolicy > Absolute:
		return configErr("unknown cluster policy %d", int(p.ClusterPolicy))
	case p.NodePolicy < policyDefault || p.NodePolicy > Absolute:
		return configErr("unknown node policy %d", int(p.NodePolicy))
	}
	return nil
}

// resolved fills the optional fields. Call only after Validate.
func (p BuildParams) resolved() BuildParams {
	if p.Seed == 0 {
		p.Seed = defaultSeed
	}
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.J == 0 {
		p.J = defaultJ
	}
	if p.Replicas == 0 {
		p.Replicas = defaultReplicas
	}
	if p.Slack == 0 {
		p.Slack = defaultSlack
	}
	if p.ClusterPolicy == policyDefault {
		p.ClusterPolicy = Average
	}
	if p.NodePolicy == policyDefault {
		p.NodePolicy = Absolute
	}
	return p
}

// beamWidth is the number of leaders kept per level while descending.
func (p BuildParams) beamWidth() int {
	if p.CPol == NearestJ {
		return p.J
	}
	return 1
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pkgerrors.ErrConfiguration, fmt.Sprintf(format, args...))
}

// QueryParams are supplied per search call.
type QueryParams struct {
	// K is the number of neighbors to return.
	K int `json:"k"`
	// B is the number of leaf clusters scanned. Values below 1 scan one leaf.
	B int `json:"b"`
	// Workers bounds the scan fan-out; 0 uses GOMAXPROCS.
	Workers int `json:"workers,omitempty"`
}

func (d DescentPolicy) String() string {
	switch d {
	case NearestOne:
		return "nearest-1"
	case NearestJ:
		return "nearest-j"
	default:
		return fmt.Sprintf("cpol(%d)", int(d))
	}
}

func (d DescentPolicy) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DescentPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "nearest-1", "nearest1", "":
		*d = NearestOne
	case "nearest-j", "nearestj":
		*d = NearestJ
	default:
		return configErr("unknown cpol %q", text)
	}
	return nil
}

func (l LeafPolicy) String() string {
	switch l {
	case Strict:
		return "strict"
	case MultiAssign:
		return "multi-assign"
	default:
		return fmt.Sprintf("npol(%d)", int(l))
	}
}

func (l LeafPolicy) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LeafPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "strict", "":
		*l = Strict
	case "multi-assign", "multi":
		*l = MultiAssign
	default:
		return configErr("unknown npol %q", text)
	}
	return nil
}

func (r ReclusterPolicy) String() string {
	switch r {
	case policyDefault:
		return "default"
	case Average:
		return "average"
	case Absolute:
		return "absolute"
	default:
		return fmt.Sprintf("policy(%d)", int(r))
	}
}

func (r ReclusterPolicy) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ReclusterPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "default", "":
		*r = policyDefault
	case "average":
		*r = Average
	case "absolute":
		*r = Absolute
	default:
		return configErr("unknown recluster policy %q", text)
	}
	return nil
}
