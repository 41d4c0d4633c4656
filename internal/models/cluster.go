package models

// AutoScalingGroup is a named group of EC2 instance identifiers managed as a unit.
type AutoScalingGroup struct {
	Name      string   `json:"name"`
	Instances []string `json:"instances"`
}

// Cluster is a region-scoped collection of autoscaling groups under conformity
// evaluation. Clusters are supplied by the caller per check and are read-only
// to the rules that inspect them.
type Cluster struct {
	Name              string             `json:"name,omitempty"`
	Region            string             `json:"region"`
	AutoScalingGroups []AutoScalingGroup `json:"auto_scaling_groups"`
}

// InstanceIDs flattens the member instance IDs of every autoscaling group in
// the cluster into one slice. Duplicates are preserved as given; consumers
// that need set semantics key by instance ID.
func (c Cluster) InstanceIDs() []string {
	var ids []string
	for _, asg := range c.AutoScalingGroups {
		ids = append(ids, asg.Instances...)
	}
	return ids
}
