package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/analysis"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

func buildSerialKernel() *ir.Kernel {
	k := ir.NewKernel("serial")
	a := &ir.Statement{ID: 1, Tag: ir.TagArgLoad, Type: ir.TypeI32}
	b := &ir.Statement{ID: 2, Tag: ir.TagArgLoad, Type: ir.TypeI32}
	c := &ir.Statement{ID: 3, Tag: ir.TagAdd, Type: ir.TypeI32}
	c.AddOperand(a)
	c.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr, Type: ir.TypePtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(c)
	for _, s := range []*ir.Statement{a, b, c, p, store} {
		k.Body.Insert(s)
	}
	return k
}

func TestCountStatements(t *testing.T) {
	k := buildSerialKernel()
	require.Equal(t, 5, analysis.CountStatements(k.Body))
}

func TestGatherStatementsStopsAtContainer(t *testing.T) {
	k := ir.NewKernel("loop")
	body := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagRangeFor, Body: body}
	body.Parent = loop
	inner := &ir.Statement{ID: 2, Tag: ir.TagConstI32}
	body.Insert(inner)
	k.Body.Insert(loop)

	found := analysis.GatherStatements(k.Body, func(s *ir.Statement) bool {
		return s.Tag == ir.TagRangeFor
	})
	require.Len(t, found, 1)

	// A predicate that never matches the container descends normally.
	innerFound := analysis.GatherStatements(k.Body, func(s *ir.Statement) bool {
		return s.Tag == ir.TagConstI32
	})
	require.Len(t, innerFound, 1)
}

func TestGatherSNodeReadWrites(t *testing.T) {
	root := ir.NewSNode(0, ir.SNodeRoot, nil)
	place := ir.NewSNode(1, ir.SNodePlace, root)

	k := ir.NewKernel("rw")
	ptrLoad := &ir.Statement{ID: 1, Tag: ir.TagGlobalPtr, SNode: place}
	load := &ir.Statement{ID: 2, Tag: ir.TagGlobalLoad}
	load.AddOperand(ptrLoad)
	ptrStore := &ir.Statement{ID: 3, Tag: ir.TagGlobalPtr, SNode: place}
	val := &ir.Statement{ID: 4, Tag: ir.TagConstI32}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(ptrStore)
	store.AddOperand(val)
	for _, s := range []*ir.Statement{ptrLoad, load, ptrStore, val, store} {
		k.Body.Insert(s)
	}

	rw := analysis.GatherSNodeReadWrites(k.Body)
	require.True(t, rw.Contains(place))
	require.True(t, rw.ContainsWrite(place))
}

func TestOfflineCacheKeyStableAcrossIdenticalShape(t *testing.T) {
	k1 := buildSerialKernel()
	k2 := buildSerialKernel()
	cfg := config.Default()
	caps := config.NewDeviceCapabilityConfig()

	key1 := analysis.OfflineCacheKey(k1.Body, cfg, caps)
	key2 := analysis.OfflineCacheKey(k2.Body, cfg, caps)
	require.Equal(t, key1, key2)

	cfg2 := config.Default()
	cfg2.DumpIR = true // ignored field must not change the key
	key3 := analysis.OfflineCacheKey(k1.Body, cfg2, caps)
	require.Equal(t, key1, key3)

	cfg3 := config.Default()
	cfg3.FastMath = true // affects codegen: must change the key
	key4 := analysis.OfflineCacheKey(k1.Body, cfg3, caps)
	require.NotEqual(t, key1, key4)
}

func TestBuildCFGAndLiveVariableAnalysis(t *testing.T) {
	k := buildSerialKernel()
	cfg := analysis.BuildCFG(k.Body)
	require.NotNil(t, cfg.Entry)

	analysis.LiveVariableAnalysis(cfg, analysis.LiveVarAnalysisConfig{TrackGlobals: true})
	for _, bb := range cfg.Nodes {
		for _, succ := range bb.Succs {
			for s := range succ.LiveIn {
				require.True(t, bb.LiveOut[s])
			}
		}
	}
}
