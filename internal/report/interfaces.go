package report

// Printer is the interface for rendering conformity reports.
type Printer interface {
	PrintReport(reports []ClusterReport, format OutputFormatType) error
}
