package models

// Conformity is the outcome of checking a single rule against a single
// cluster. FailedInstanceIDs lists the instances that were eligible for the
// check and did not satisfy the rule; order is not significant and consumers
// must treat the list as a set.
type Conformity struct {
	RuleName          string   `json:"rule_name"`
	FailedInstanceIDs []string `json:"failed_instance_ids"`
}

// IsConforming reports whether no instance failed the rule.
func (c Conformity) IsConforming() bool {
	return len(c.FailedInstanceIDs) == 0
}
