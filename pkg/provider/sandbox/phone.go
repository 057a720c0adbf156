package sandbox

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/db"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

// ReasonInvalidPhone is returned for numbers that are not digits.
const ReasonInvalidPhone = "INVALID_PHONE_NUMBER"

var (
	phoneDigits  = regexp.MustCompile(`^\+?[0-9]{4,15}$`)
	phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Verify issues a stable phone id per (region, number) and a verify id for the attempt.
func (p *Provider) Verify(ctx context.Context, host lifecycle.Host, phoneNumber, region string) (*capability.Verification, error) {
	number := phoneCleaner.Replace(phoneNumber)
	if !phoneDigits.MatchString(number) {
		return nil, capability.NewError(ReasonInvalidPhone, "phone number must contain 4 to 15 digits",
			map[string]interface{}{"phoneNumber": phoneNumber})
	}
	region = strings.ToUpper(region)
	key := region + ":" + number

	v := &capability.Verification{
		PhoneID:  uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		VerifyID: uuid.NewString(),
	}

	if p.opts.Ledger != nil {
		rec, err := p.opts.Ledger.RecordVerification(ctx, &db.VerificationRecord{
			PhoneID:     v.PhoneID,
			VerifyID:    v.VerifyID,
			HostID:      host.ID(),
			PhoneNumber: number,
			Region:      region,
		})
		if err != nil {
			return nil, storageError("record verification", err)
		}
		return &capability.Verification{PhoneID: rec.PhoneID, VerifyID: rec.VerifyID}, nil
	}

	if existing, ok, _ := p.verifications.PeekOrAdd(key, v); ok {
		return existing, nil
	}
	return v, nil
}
