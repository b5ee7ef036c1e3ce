package requester

// Kind of the request outcome.
type Kind int

const (
	// KindSuccess - the payload reports success.
	KindSuccess Kind = iota
	// KindDownload - the response is a file, see the Content-Disposition header.
	KindDownload
	// KindWarning - the payload reports a business error.
	KindWarning
	// KindSuppressed - the request failed, the failure was only notified or not reported at all.
	KindSuppressed
	// KindCanceled - the request was canceled, for example by a newer duplicate request.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindDownload:
		return "download"
	case KindWarning:
		return "warning"
	case KindSuppressed:
		return "suppressed"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result of the Requester.Request.
type Result struct {
	Kind    Kind
	Payload *Payload
	// Notified is true if a message was shown to the user.
	Notified bool
	// Filename of a downloaded file.
	Filename string
	// DownloadKey is the key of the file in the download sink, if it is configured.
	DownloadKey string
}
