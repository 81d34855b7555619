package domain

// Submission carries the two uploaded images of a KYC request. Data is held
// in memory: uploads are size-capped at the HTTP boundary.
type Submission struct {
	Document     []byte
	DocumentName string
	DocumentMime string
	Selfie       []byte
	SelfieName   string
	SelfieMime   string
}
