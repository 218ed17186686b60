package config

type WorkerKeyStruct struct {
	IntegrityReportQueue string
}

var WorkerKey = &WorkerKeyStruct{
	IntegrityReportQueue: "integrity_report_queue",
}
