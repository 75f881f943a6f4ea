package models

// User is the account owner profile. ID is the primary key.
//
// Each nested bundle is stored in its own side table and is either fully
// present or absent.
type User struct {
	ID               *int32
	Username         *string
	Email            *string
	Name             *string
	Timezone         *string
	Privilege        *int32
	ServiceLevel     *int32
	Created          *int64
	Updated          *int64
	Deleted          *int64
	Active           *bool
	ShardID          *string
	PhotoURL         *string
	PhotoLastUpdated *int64

	Attributes       *UserAttributes
	Accounting       *Accounting
	AccountLimits    *AccountLimits
	BusinessUserInfo *BusinessUserInfo

	Dirty bool
	Local bool
}

// UserAttributes holds user preferences and bookkeeping.
type UserAttributes struct {
	DefaultLocationName        *string
	DefaultLatitude            *float64
	DefaultLongitude           *float64
	Preactivation              *bool
	ViewedPromotions           []string
	IncomingEmailAddress       *string
	RecentMailedAddresses      []string
	Comments                   *string
	DateAgreedToTermsOfService *int64
	MaxReferrals               *int32
	ReferralCount              *int32
	RefererCode                *string
	SentEmailDate              *int64
	SentEmailCount             *int32
	DailyEmailLimit            *int32
	EmailOptOutDate            *int64
	PreferredLanguage          *string
	PreferredCountry           *string
	ClipFullPage               *bool
	TwitterUserName            *string
	TwitterID                  *string
	GroupName                  *string
	RecognitionLanguage        *string
	BusinessAddress            *string
	HideSponsorBilling         *bool
	UseEmailAutoFiling         *bool
	ReminderEmailConfig        *int32
	PasswordUpdated            *int64
	SalesforcePushEnabled      *bool
}

// Accounting holds billing state.
type Accounting struct {
	UploadLimitEnd            *int64
	UploadLimitNextMonth      *int64
	PremiumServiceStatus      *int32
	PremiumOrderNumber        *string
	PremiumCommerceService    *string
	PremiumServiceStart       *int64
	PremiumServiceSKU         *string
	LastSuccessfulCharge      *int64
	LastFailedCharge          *int64
	LastFailedChargeReason    *string
	NextPaymentDue            *int64
	PremiumLockUntil          *int64
	Updated                   *int64
	PremiumSubscriptionNumber *string
	LastRequestedCharge       *int64
	Currency                  *string
	UnitPrice                 *int32
	UnitDiscount              *int32
	NextChargeDate            *int64
	AvailablePoints           *int32
}

// AccountLimits holds the service limits of the account.
type AccountLimits struct {
	UserMailLimitDaily    *int32
	NoteSizeMax           *int64
	ResourceSizeMax       *int64
	UserLinkedNotebookMax *int32
	UploadLimit           *int64
	UserNoteCountMax      *int32
	UserNotebookCountMax  *int32
	UserTagCountMax       *int32
	NoteTagCountMax       *int32
	UserSavedSearchesMax  *int32
	NoteResourceCountMax  *int32
}

// BusinessUserInfo is set for members of a business.
type BusinessUserInfo struct {
	BusinessID   *int32
	BusinessName *string
	Role         *int32
	Email        *string
}
