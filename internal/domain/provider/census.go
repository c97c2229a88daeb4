package provider

import (
	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
)

// SubtreeCensus is one root's slice of a Census, adapted from the teacher's
// model.ShardStats: a live-cell count and an approximate total mailbox
// depth for everything reachable under one guardian.
type SubtreeCensus struct {
	Root        address.Root `json:"root"`
	LiveCells   int          `json:"live_cells"`
	MailboxSize int64        `json:"approx_mailbox_size"`
}

// Census is a point-in-time, non-authoritative tree snapshot (§4.3:
// "traversal is not a snapshot"), adapted from the teacher's model.HubStats.
type Census struct {
	TotalLiveCells int              `json:"total_live_cells"`
	Subtrees       []SubtreeCensus  `json:"subtrees"`
}

// BuildCensus drives TraverseAccumulate's accumulate(T) variant to produce
// the §19 introspection snapshot: live cell count and approximate mailbox
// depth per root subtree. A cell.Node only contributes mailbox depth if it
// exposes ApproxLen (the same optional-interface type assertion provider.go
// already uses for AddChild), since Node itself carries no mailbox concern.
func BuildCensus(p *Provider) Census {
	bySubtree := map[address.Root]*SubtreeCensus{}
	order := make([]address.Root, 0, 2)

	TraverseAccumulate(p, struct{}{}, func(n cell.Node, acc struct{}) (struct{}, VisitAction) {
		root := n.Address().Root()
		sc, ok := bySubtree[root]
		if !ok {
			sc = &SubtreeCensus{Root: root}
			bySubtree[root] = sc
			order = append(order, root)
		}
		sc.LiveCells++
		if withLen, ok := n.(interface{ ApproxLen() int64 }); ok {
			sc.MailboxSize += withLen.ApproxLen()
		}
		return acc, VisitContinue
	})

	census := Census{Subtrees: make([]SubtreeCensus, 0, len(order))}
	for _, root := range order {
		sc := *bySubtree[root]
		census.Subtrees = append(census.Subtrees, sc)
		census.TotalLiveCells += sc.LiveCells
	}
	return census
}
