package localstore

import (
	"context"
	"fmt"

	"github.com/starford/notestore/internal/models"
)

// AddUser stores a new user. The user id is the primary key.
func (db *DB) AddUser(ctx context.Context, u *models.User) (err error) {
	const op = "add user"
	defer func() { db.finish(EntityUser, OpAdd, userKey(u), nil, err) }()

	if err := u.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		exists, err := userExists(ctx, tx, *u.ID)
		if err != nil {
			return err
		}
		if exists {
			return alreadyExists(op, "user with id %d", *u.ID)
		}
		return putUser(ctx, tx, u)
	})
}

// UpdateUser replaces a stored user and all of its attribute bundles.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) (err error) {
	const op = "update user"
	defer func() { db.finish(EntityUser, OpUpdate, userKey(u), nil, err) }()

	if err := u.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		exists, err := userExists(ctx, tx, *u.ID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(op, "user with id %d", *u.ID)
		}
		return putUser(ctx, tx, u)
	})
}

// FindUser returns the user with the given id.
func (db *DB) FindUser(ctx context.Context, id int32) (*models.User, error) {
	var u *models.User
	err := db.read(ctx, func(tx *Transaction) error {
		var err error
		u, err = findUser(ctx, tx, id)
		return err
	})
	db.finish(EntityUser, OpFind, "", nil, err)
	return u, err
}

// ExpungeUser deletes a user together with its attribute bundles.
func (db *DB) ExpungeUser(ctx context.Context, id int32) (err error) {
	const op = "expunge user"
	defer func() { db.finish(EntityUser, OpExpunge, fmt.Sprint(id), nil, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return engineError(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(op, "user with id %d", id)
		}
		return nil
	})
}

func userKey(u *models.User) string {
	if u == nil || u.ID == nil {
		return ""
	}
	return fmt.Sprint(*u.ID)
}

func userExists(ctx context.Context, q querier, id int32) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&n); err != nil {
		return false, engineError("check user", err)
	}
	return n > 0, nil
}

// putUser upserts the users row and rewrites every side table, so a bundle
// omitted from u never survives from an earlier version.
func putUser(ctx context.Context, tx *Transaction, u *models.User) error {
	const op = "put user"
	id := *u.ID

	var b bindings
	b.set("id", id)
	b.set("username", opt(u.Username))
	b.set("email", opt(u.Email))
	b.set("name", opt(u.Name))
	b.set("timezone", opt(u.Timezone))
	b.set("privilege", opt(u.Privilege))
	b.set("service_level", opt(u.ServiceLevel))
	b.set("creation_timestamp", opt(u.Created))
	b.set("modification_timestamp", opt(u.Updated))
	b.set("deletion_timestamp", opt(u.Deleted))
	b.set("is_active", opt(u.Active))
	b.set("shard_id", opt(u.ShardID))
	b.set("photo_url", opt(u.PhotoURL))
	b.set("photo_last_update_timestamp", opt(u.PhotoLastUpdated))
	b.set("is_dirty", u.Dirty)
	b.set("is_local", u.Local)
	if err := b.exec(ctx, tx, op, b.upsertSQL("users", "id")); err != nil {
		return err
	}

	for _, t := range []string{
		"user_attributes", "user_attributes_viewed_promotions", "user_attributes_recent_mailed_addresses",
		"accounting", "account_limits", "business_user_info",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE user_id = ?", id); err != nil {
			return engineError(op, err)
		}
	}

	if a := u.Attributes; a != nil {
		b := userAttributesBindings(id, a)
		if err := b.exec(ctx, tx, op, b.insertSQL("user_attributes")); err != nil {
			return err
		}
		if err := insertUserList(ctx, tx, "user_attributes_viewed_promotions", "promotion", id, a.ViewedPromotions); err != nil {
			return err
		}
		if err := insertUserList(ctx, tx, "user_attributes_recent_mailed_addresses", "address", id, a.RecentMailedAddresses); err != nil {
			return err
		}
	}
	if a := u.Accounting; a != nil {
		b := accountingBindings(id, a)
		if err := b.exec(ctx, tx, op, b.insertSQL("accounting")); err != nil {
			return err
		}
	}
	if l := u.AccountLimits; l != nil {
		b := accountLimitsBindings(id, l)
		if err := b.exec(ctx, tx, op, b.insertSQL("account_limits")); err != nil {
			return err
		}
	}
	if bi := u.BusinessUserInfo; bi != nil {
		var b bindings
		b.set("user_id", id)
		b.set("business_id", opt(bi.BusinessID))
		b.set("business_name", opt(bi.BusinessName))
		b.set("business_role", opt(bi.Role))
		b.set("business_email", opt(bi.Email))
		if err := b.exec(ctx, tx, op, b.insertSQL("business_user_info")); err != nil {
			return err
		}
	}
	return nil
}

func insertUserList(ctx context.Context, tx *Transaction, table, col string, id int32, items []string) error {
	for i, it := range items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (user_id, "+col+", position) VALUES (?, ?, ?)", id, it, i)
		if err != nil {
			return engineError("put user "+col, err)
		}
	}
	return nil
}

func userAttributesBindings(id int32, a *models.UserAttributes) *bindings {
	var b bindings
	b.set("user_id", id)
	b.set("default_location_name", opt(a.DefaultLocationName))
	b.set("default_latitude", opt(a.DefaultLatitude))
	b.set("default_longitude", opt(a.DefaultLongitude))
	b.set("preactivation", opt(a.Preactivation))
	b.set("incoming_email_address", opt(a.IncomingEmailAddress))
	b.set("comments", opt(a.Comments))
	b.set("date_agreed_to_terms_of_service", opt(a.DateAgreedToTermsOfService))
	b.set("max_referrals", opt(a.MaxReferrals))
	b.set("referral_count", opt(a.ReferralCount))
	b.set("referer_code", opt(a.RefererCode))
	b.set("sent_email_date", opt(a.SentEmailDate))
	b.set("sent_email_count", opt(a.SentEmailCount))
	b.set("daily_email_limit", opt(a.DailyEmailLimit))
	b.set("email_opt_out_date", opt(a.EmailOptOutDate))
	b.set("preferred_language", opt(a.PreferredLanguage))
	b.set("preferred_country", opt(a.PreferredCountry))
	b.set("clip_full_page", opt(a.ClipFullPage))
	b.set("twitter_user_name", opt(a.TwitterUserName))
	b.set("twitter_id", opt(a.TwitterID))
	b.set("group_name", opt(a.GroupName))
	b.set("recognition_language", opt(a.RecognitionLanguage))
	b.set("business_address", opt(a.BusinessAddress))
	b.set("hide_sponsor_billing", opt(a.HideSponsorBilling))
	b.set("use_email_auto_filing", opt(a.UseEmailAutoFiling))
	b.set("reminder_email_config", opt(a.ReminderEmailConfig))
	b.set("password_updated", opt(a.PasswordUpdated))
	b.set("salesforce_push_enabled", opt(a.SalesforcePushEnabled))
	return &b
}

func accountingBindings(id int32, a *models.Accounting) *bindings {
	var b bindings
	b.set("user_id", id)
	b.set("upload_limit_end", opt(a.UploadLimitEnd))
	b.set("upload_limit_next_month", opt(a.UploadLimitNextMonth))
	b.set("premium_service_status", opt(a.PremiumServiceStatus))
	b.set("premium_order_number", opt(a.PremiumOrderNumber))
	b.set("premium_commerce_service", opt(a.PremiumCommerceService))
	b.set("premium_service_start", opt(a.PremiumServiceStart))
	b.set("premium_service_sku", opt(a.PremiumServiceSKU))
	b.set("last_successful_charge", opt(a.LastSuccessfulCharge))
	b.set("last_failed_charge", opt(a.LastFailedCharge))
	b.set("last_failed_charge_reason", opt(a.LastFailedChargeReason))
	b.set("next_payment_due", opt(a.NextPaymentDue))
	b.set("premium_lock_until", opt(a.PremiumLockUntil))
	b.set("accounting_updated", opt(a.Updated))
	b.set("premium_subscription_number", opt(a.PremiumSubscriptionNumber))
	b.set("last_requested_charge", opt(a.LastRequestedCharge))
	b.set("currency", opt(a.Currency))
	b.set("unit_price", opt(a.UnitPrice))
	b.set("unit_discount", opt(a.UnitDiscount))
	b.set("next_charge_date", opt(a.NextChargeDate))
	b.set("available_points", opt(a.AvailablePoints))
	return &b
}

func accountLimitsBindings(id int32, l *models.AccountLimits) *bindings {
	var b bindings
	b.set("user_id", id)
	b.set("user_mail_limit_daily", opt(l.UserMailLimitDaily))
	b.set("note_size_max", opt(l.NoteSizeMax))
	b.set("resource_size_max", opt(l.ResourceSizeMax))
	b.set("user_linked_notebook_max", opt(l.UserLinkedNotebookMax))
	b.set("upload_limit", opt(l.UploadLimit))
	b.set("user_note_count_max", opt(l.UserNoteCountMax))
	b.set("user_notebook_count_max", opt(l.UserNotebookCountMax))
	b.set("user_tag_count_max", opt(l.UserTagCountMax))
	b.set("note_tag_count_max", opt(l.NoteTagCountMax))
	b.set("user_saved_searches_max", opt(l.UserSavedSearchesMax))
	b.set("note_resource_count_max", opt(l.NoteResourceCountMax))
	return &b
}

const userSelectSQL = `
SELECT users.*,
	user_attributes.user_id AS attributes_user_id, user_attributes.*,
	accounting.user_id AS accounting_user_id, accounting.*,
	account_limits.user_id AS account_limits_user_id, account_limits.*,
	business_user_info.user_id AS business_user_info_user_id, business_user_info.*
FROM users
LEFT JOIN user_attributes ON user_attributes.user_id = users.id
LEFT JOIN accounting ON accounting.user_id = users.id
LEFT JOIN account_limits ON account_limits.user_id = users.id
LEFT JOIN business_user_info ON business_user_info.user_id = users.id
WHERE users.id = ?`

func findUser(ctx context.Context, q querier, id int32) (*models.User, error) {
	const op = "find user"
	recs, err := queryRecords(ctx, q, op, userSelectSQL, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, notFound(op, "user with id %d", id)
	}
	u, err := decodeUser(recs[0])
	if err != nil {
		return nil, err
	}
	if u.Attributes != nil {
		if u.Attributes.ViewedPromotions, err = queryUserList(ctx, q, "user_attributes_viewed_promotions", "promotion", id); err != nil {
			return nil, err
		}
		if u.Attributes.RecentMailedAddresses, err = queryUserList(ctx, q, "user_attributes_recent_mailed_addresses", "address", id); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func queryUserList(ctx context.Context, q querier, table, col string, id int32) ([]string, error) {
	recs, err := queryRecords(ctx, q, "find user "+col,
		"SELECT "+col+" FROM "+table+" WHERE user_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range recs {
		if s := r.str(col); s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func decodeUser(r record) (*models.User, error) {
	id, err := r.requireInt32("id")
	if err != nil {
		return nil, err
	}
	dirty, err := r.requireBool("is_dirty")
	if err != nil {
		return nil, err
	}
	local, err := r.requireBool("is_local")
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:               &id,
		Username:         r.str("username"),
		Email:            r.str("email"),
		Name:             r.str("name"),
		Timezone:         r.str("timezone"),
		Privilege:        r.int32p("privilege"),
		ServiceLevel:     r.int32p("service_level"),
		Created:          r.int64p("creation_timestamp"),
		Updated:          r.int64p("modification_timestamp"),
		Deleted:          r.int64p("deletion_timestamp"),
		Active:           r.boolp("is_active"),
		ShardID:          r.str("shard_id"),
		PhotoURL:         r.str("photo_url"),
		PhotoLastUpdated: r.int64p("photo_last_update_timestamp"),
		Dirty:            dirty,
		Local:            local,
	}
	if r.has("attributes_user_id") {
		u.Attributes = &models.UserAttributes{
			DefaultLocationName:        r.str("default_location_name"),
			DefaultLatitude:            r.float64p("default_latitude"),
			DefaultLongitude:           r.float64p("default_longitude"),
			Preactivation:              r.boolp("preactivation"),
			IncomingEmailAddress:       r.str("incoming_email_address"),
			Comments:                   r.str("comments"),
			DateAgreedToTermsOfService: r.int64p("date_agreed_to_terms_of_service"),
			MaxReferrals:               r.int32p("max_referrals"),
			ReferralCount:              r.int32p("referral_count"),
			RefererCode:                r.str("referer_code"),
			SentEmailDate:              r.int64p("sent_email_date"),
			SentEmailCount:             r.int32p("sent_email_count"),
			DailyEmailLimit:            r.int32p("daily_email_limit"),
			EmailOptOutDate:            r.int64p("email_opt_out_date"),
			PreferredLanguage:          r.str("preferred_language"),
			PreferredCountry:           r.str("preferred_country"),
			ClipFullPage:               r.boolp("clip_full_page"),
			TwitterUserName:            r.str("twitter_user_name"),
			TwitterID:                  r.str("twitter_id"),
			GroupName:                  r.str("group_name"),
			RecognitionLanguage:        r.str("recognition_language"),
			BusinessAddress:            r.str("business_address"),
			HideSponsorBilling:         r.boolp("hide_sponsor_billing"),
			UseEmailAutoFiling:         r.boolp("use_email_auto_filing"),
			ReminderEmailConfig:        r.int32p("reminder_email_config"),
			PasswordUpdated:            r.int64p("password_updated"),
			SalesforcePushEnabled:      r.boolp("salesforce_push_enabled"),
		}
	}
	if r.has("accounting_user_id") {
		u.Accounting = &models.Accounting{
			UploadLimitEnd:            r.int64p("upload_limit_end"),
			UploadLimitNextMonth:      r.int64p("upload_limit_next_month"),
			PremiumServiceStatus:      r.int32p("premium_service_status"),
			PremiumOrderNumber:        r.str("premium_order_number"),
			PremiumCommerceService:    r.str("premium_commerce_service"),
			PremiumServiceStart:       r.int64p("premium_service_start"),
			PremiumServiceSKU:         r.str("premium_service_sku"),
			LastSuccessfulCharge:      r.int64p("last_successful_charge"),
			LastFailedCharge:          r.int64p("last_failed_charge"),
			LastFailedChargeReason:    r.str("last_failed_charge_reason"),
			NextPaymentDue:            r.int64p("next_payment_due"),
			PremiumLockUntil:          r.int64p("premium_lock_until"),
			Updated:                   r.int64p("accounting_updated"),
			PremiumSubscriptionNumber: r.str("premium_subscription_number"),
			LastRequestedCharge:       r.int64p("last_requested_charge"),
			Currency:                  r.str("currency"),
			UnitPrice:                 r.int32p("unit_price"),
			UnitDiscount:              r.int32p("unit_discount"),
			NextChargeDate:            r.int64p("next_charge_date"),
			AvailablePoints:           r.int32p("available_points"),
		}
	}
	if r.has("account_limits_user_id") {
		u.AccountLimits = &models.AccountLimits{
			UserMailLimitDaily:    r.int32p("user_mail_limit_daily"),
			NoteSizeMax:           r.int64p("note_size_max"),
			ResourceSizeMax:       r.int64p("resource_size_max"),
			UserLinkedNotebookMax: r.int32p("user_linked_notebook_max"),
			UploadLimit:           r.int64p("upload_limit"),
			UserNoteCountMax:      r.int32p("user_note_count_max"),
			UserNotebookCountMax:  r.int32p("user_notebook_count_max"),
			UserTagCountMax:       r.int32p("user_tag_count_max"),
			NoteTagCountMax:       r.int32p("note_tag_count_max"),
			UserSavedSearchesMax:  r.int32p("user_saved_searches_max"),
			NoteResourceCountMax:  r.int32p("note_resource_count_max"),
		}
	}
	if r.has("business_user_info_user_id") {
		u.BusinessUserInfo = &models.BusinessUserInfo{
			BusinessID:   r.int32p("business_id"),
			BusinessName: r.str("business_name"),
			Role:         r.int32p("business_role"),
			Email:        r.str("business_email"),
		}
	}
	return u, nil
}

// UserCount returns the number of stored users that are not marked deleted.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count users", "SELECT COUNT(*) FROM users WHERE deletion_timestamp IS NULL")
}
