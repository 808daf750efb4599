package web

// NoticeKind selects how a notice is styled.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a dismissible message shown on the next rendered page.
type Notice struct {
	Kind  NoticeKind
	Title string
	Text  string
}

const genericFailure = "Something went wrong. Please try again."

// messageOr returns err's text, or fallback when err has none.
func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
