package errors

// Process exit codes, one per error kind
const (
	ExitOK              = 0
	ExitUnknown         = 1
	ExitConfig          = 2
	ExitLoginTimeout    = 10
	ExitReportTimeout   = 11
	ExitDownloadTimeout = 12
	ExitAutomation      = 13
	ExitFileOperation   = 20
	ExitArchive         = 21
	ExitSchema          = 22
	ExitCredential      = 30
	ExitPublish         = 31
	ExitCancelled       = 130
)

var exitCodes = map[Kind]int{
	KindUnknown:         ExitUnknown,
	KindConfig:          ExitConfig,
	KindLoginTimeout:    ExitLoginTimeout,
	KindReportTimeout:   ExitReportTimeout,
	KindDownloadTimeout: ExitDownloadTimeout,
	KindAutomation:      ExitAutomation,
	KindFileOperation:   ExitFileOperation,
	KindArchive:         ExitArchive,
	KindSchema:          ExitSchema,
	KindCredential:      ExitCredential,
	KindPublish:         ExitPublish,
	KindCancelled:       ExitCancelled,
}

// ExitCode maps err to the process exit code of its kind
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[KindOf(err)]; ok {
		return code
	}
	return ExitUnknown
}
