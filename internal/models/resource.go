package models

// Resource is an attachment owned by exactly one note.
type Resource struct {
	LocalID              string
	GUID                 *string
	NoteLocalID          string
	NoteGUID             *string
	UpdateSequenceNumber *int32
	Data                 *Data
	Mime                 *string
	Width                *int16
	Height               *int16
	Duration             *int16
	Active               *bool
	// Recognition holds the recognition index XML produced for images and PDFs.
	Recognition   *Data
	AlternateData *Data
	Attributes    *ResourceAttributes

	Dirty bool
	Local bool
}

// Data is a binary payload with its size and MD5 hash.
type Data struct {
	Body     []byte
	Size     *int32
	BodyHash []byte
}

// ResourceAttributes is the optional metadata bundle of a resource.
type ResourceAttributes struct {
	SourceURL       *string
	Timestamp       *int64
	Latitude        *float64
	Longitude       *float64
	Altitude        *float64
	CameraMake      *string
	CameraModel     *string
	ClientWillIndex *bool
	RecoType        *string
	FileName        *string
	Attachment      *bool
	ApplicationData *LazyMap
}
