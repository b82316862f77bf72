package models

import "fmt"

// PlanTier identifies a pricing tier
type PlanTier string

// Plan tier constants
const (
	// PlanDev is the smallest single-node tier
	PlanDev PlanTier = "DEV"
	// PlanSmall is a single-node tier with more headroom than DEV
	PlanSmall PlanTier = "SMALL"
	// PlanMedium is the smallest operator-managed replica-set tier
	PlanMedium PlanTier = "MEDIUM"
	// PlanLarge is an operator-managed replica-set tier
	PlanLarge PlanTier = "LARGE"
	// PlanXLarge is a dedicated operator-managed tier
	PlanXLarge PlanTier = "XLARGE"
)

// LowestTier is the tier a resumed cluster falls back to when none is given
const LowestTier = PlanDev

// ResourceProfile is the immutable CPU/memory/storage/replica tuple associated
// with a pricing tier. Quantities use Kubernetes resource notation.
type ResourceProfile struct {
	CPURequest    string
	CPULimit      string
	MemoryRequest string
	MemoryLimit   string
	StorageSize   string
	Replicas      int32
	Dedicated     bool
}

// OperatorManaged reports whether clusters on this profile are delegated to
// the database operator. Tiers with three or more members need the operator's
// replica-set lifecycle management; dedicated tiers always get it.
func (p ResourceProfile) OperatorManaged() bool {
	return p.Replicas >= 3 || p.Dedicated
}

// planProfiles is the static tier table. Looked up, never written.
var planProfiles = map[PlanTier]ResourceProfile{
	PlanDev: {
		CPURequest:    "250m",
		CPULimit:      "500m",
		MemoryRequest: "256Mi",
		MemoryLimit:   "512Mi",
		StorageSize:   "1Gi",
		Replicas:      1,
	},
	PlanSmall: {
		CPURequest:    "500m",
		CPULimit:      "1",
		MemoryRequest: "512Mi",
		MemoryLimit:   "1Gi",
		StorageSize:   "10Gi",
		Replicas:      1,
	},
	PlanMedium: {
		CPURequest:    "1",
		CPULimit:      "2",
		MemoryRequest: "1Gi",
		MemoryLimit:   "2Gi",
		StorageSize:   "50Gi",
		Replicas:      3,
	},
	PlanLarge: {
		CPURequest:    "2",
		CPULimit:      "4",
		MemoryRequest: "4Gi",
		MemoryLimit:   "8Gi",
		StorageSize:   "200Gi",
		Replicas:      3,
	},
	PlanXLarge: {
		CPURequest:    "4",
		CPULimit:      "8",
		MemoryRequest: "8Gi",
		MemoryLimit:   "16Gi",
		StorageSize:   "500Gi",
		Replicas:      5,
		Dedicated:     true,
	},
}

// ProfileFor looks up the resource profile for a tier
func ProfileFor(tier PlanTier) (ResourceProfile, error) {
	profile, ok := planProfiles[tier]
	if !ok {
		return ResourceProfile{}, fmt.Errorf("unknown plan tier: %s", tier)
	}
	return profile, nil
}

// ParsePlanTier converts a string to a PlanTier
func ParsePlanTier(str string) (PlanTier, error) {
	tier := PlanTier(str)
	if _, ok := planProfiles[tier]; !ok {
		return "", fmt.Errorf("unknown plan tier: %s", str)
	}
	return tier, nil
}
