package models

// Notebook groups notes. Name uniqueness is case-insensitive within the owning
// account or linked notebook.
type Notebook struct {
	LocalID              string
	GUID                 *string
	LinkedNotebookGUID   *string
	UpdateSequenceNumber *int32
	Name                 *string
	Created              *int64
	Updated              *int64
	Published            *bool
	Stack                *string
	Publishing           *Publishing
	BusinessNotebook     *BusinessNotebook
	RecipientSettings    *NotebookRecipientSettings
	Restrictions         *NotebookRestrictions
	// SharedNotebooks keep the order they were stored in.
	SharedNotebooks []SharedNotebook

	Default   bool
	LastUsed  bool
	Dirty     bool
	Local     bool
	Favorited bool
}

// Publishing describes how a published notebook is presented.
type Publishing struct {
	URI               *string
	Order             *int32
	Ascending         *bool
	PublicDescription *string
}

// BusinessNotebook is set for notebooks shared within a business.
type BusinessNotebook struct {
	NotebookDescription *string
	Privilege           *int32
	Recommended         *bool
}

// NotebookRecipientSettings are the recipient-side settings of a shared notebook.
type NotebookRecipientSettings struct {
	ReminderNotifyEmail *bool
	ReminderNotifyInApp *bool
	InMyList            *bool
	Stack               *string
}

// NotebookRestrictions is the permission bundle of a notebook. Unset fields permit.
type NotebookRestrictions struct {
	NoReadNotes                            *bool
	NoCreateNotes                          *bool
	NoUpdateNotes                          *bool
	NoExpungeNotes                         *bool
	NoShareNotes                           *bool
	NoEmailNotes                           *bool
	NoSendMessageToRecipients              *bool
	NoUpdateNotebook                       *bool
	NoExpungeNotebook                      *bool
	NoSetDefaultNotebook                   *bool
	NoSetNotebookStack                     *bool
	NoPublishToPublic                      *bool
	NoPublishToBusinessLibrary             *bool
	NoCreateTags                           *bool
	NoUpdateTags                           *bool
	NoExpungeTags                          *bool
	NoSetParentTag                         *bool
	NoCreateSharedNotebooks                *bool
	NoShareNotesWithBusiness               *bool
	NoRenameNotebook                       *bool
	UpdateWhichSharedNotebookRestrictions  *int32
	ExpungeWhichSharedNotebookRestrictions *int32
}

// SharedNotebook is one share of a notebook. It is keyed by ID and refers to
// its notebook by guid.
type SharedNotebook struct {
	ID                           *int64
	UserID                       *int32
	NotebookGUID                 *string
	Email                        *string
	NotebookModifiable           *bool
	Privilege                    *int32
	RecipientReminderNotifyEmail *bool
	RecipientReminderNotifyInApp *bool
	ServiceCreated               *int64
	ServiceUpdated               *int64
	ServiceAssigned              *int64
	GlobalID                     *string
	Username                     *string
	SharerUserID                 *int32
	RecipientUsername            *string
	RecipientUserID              *int32
}

// LinkedNotebook references a notebook of another account shared into this one.
// Its guid is its only identity.
type LinkedNotebook struct {
	GUID                   *string
	UpdateSequenceNumber   *int32
	ShareName              *string
	Username               *string
	ShardID                *string
	SharedNotebookGlobalID *string
	URI                    *string
	NoteStoreURL           *string
	WebAPIURLPrefix        *string
	Stack                  *string
	BusinessID             *int32

	Dirty bool
}
