// Package archi models the execution platform the scheduler and mapper
// target: clusters of processing elements with per-cluster memory
// interfaces and inter-PE communication costs (spec.md §2 item 9,
// supplemented from libspider/libspider/runtime/platform/RTPlatform.h,
// since spec.md assumes this shape exists without spelling it out).
package archi

// PE is one processing element.
type PE struct {
	Name       string
	VirtualIx  int
	ClusterIx  int
	isEnabled  bool
}

// NewPE builds an enabled PE.
func NewPE(name string, virtualIx, clusterIx int) *PE {
	return &PE{Name: name, VirtualIx: virtualIx, ClusterIx: clusterIx, isEnabled: true}
}

// Enabled reports whether the PE currently accepts mapping.
func (p *PE) Enabled() bool { return p.isEnabled }

// SetEnabled toggles whether the mapper may target this PE.
func (p *PE) SetEnabled(on bool) { p.isEnabled = on }

// Cluster groups PEs that share a MemoryInterface.
type Cluster struct {
	Name string
	PEs  []*PE
}

// CostFunctor computes the communication cost, in the scheduler's time
// unit, of moving sizeBytes from srcPE to dstPE (spec.md §4.7/§8
// "comm_cost(src_PE, this_PE, size)"; supplemented from libspider's
// CommunicationCostFunctor.h as a first-class pluggable field instead of
// a hardwired same-cluster/cross-cluster rule).
type CostFunctor func(srcPE, dstPE *PE, sizeBytes int64) int64

// DefaultCostFunctor is free within a cluster and charges one cost unit
// per byte across clusters, matching the common case described by the
// source's platform model.
func DefaultCostFunctor(srcPE, dstPE *PE, sizeBytes int64) int64 {
	if srcPE == nil || dstPE == nil || srcPE.ClusterIx == dstPE.ClusterIx {
		return 0
	}
	return sizeBytes
}

// Platform is the whole fleet: clusters of PEs, plus the designated GRT
// (global runtime) PE the mapper's bias targets (spec.md §4.8, §2 item 9:
// "GRT... PE").
type Platform struct {
	Clusters []*Cluster
	GRTPE    *PE
	Cost     CostFunctor
}

// NewPlatform builds a Platform with the DefaultCostFunctor.
func NewPlatform() *Platform {
	return &Platform{Cost: DefaultCostFunctor}
}

// AddCluster appends c and returns its index.
func (p *Platform) AddCluster(c *Cluster) int {
	p.Clusters = append(p.Clusters, c)
	return len(p.Clusters) - 1
}

// AllPEs returns every PE across every cluster, in cluster then
// declaration order (deterministic for the mapper's tie-breaks).
func (p *Platform) AllPEs() []*PE {
	var all []*PE
	for _, c := range p.Clusters {
		all = append(all, c.PEs...)
	}
	return all
}

// IsGRT reports whether pe is the platform's designated GRT PE.
func (p *Platform) IsGRT(pe *PE) bool {
	return p.GRTPE != nil && pe == p.GRTPE
}
