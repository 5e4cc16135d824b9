package connectors

import (
	"context"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/connectors/browser"
)

const slcSignInURL = "https://www.gov.uk/sign-in-to-manage-your-student-loan-balance"

// UKStudentLoan scrapes the outstanding balance from the gov.uk student
// loan portal. Loans are debt, so the observed balance is negated.
type UKStudentLoan struct {
	launch browser.Launcher
}

// NewUKStudentLoan builds the student loan provider.
func NewUKStudentLoan(launch browser.Launcher) *UKStudentLoan {
	return &UKStudentLoan{launch: launch}
}

func (u *UKStudentLoan) Kind() ynabconnect.ProviderKind { return ynabconnect.KindUKStudentLoan }

func (u *UKStudentLoan) GetBalance(ctx context.Context, account ynabconnect.Account) (*ynabconnect.Observation, error) {
	b, err := u.launch(ctx)
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "launch browser: %v", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "open page: %v", err)
	}
	defer page.Close()

	if err := page.Goto(slcSignInURL); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not reach UK Student Loan page")
	}
	if err := page.Click(`//a[contains(., "Start now")]`); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not find Start Now button on UK Student Loan page")
	}

	// Select "manage your student loan balance".
	if err := page.Click("#textForSignIn1"); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not find manage student loan option on UK Student Loan page")
	}
	if err := page.Click(`//button[contains(., "Continue")]`); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not find manage student loan option on UK Student Loan page")
	}

	if err := u.enterCredentials(page, account); err != nil {
		return nil, err
	}

	value, err := page.Text("#balanceId_1")
	if err != nil || value == "" {
		// Made it through the whole login flow and the balance element
		// still is not there: retrying will not help.
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeNotFound,
			"could not find balance element on UK Student Loan page")
	}

	return &ynabconnect.Observation{Balance: ParseBalanceString(value).Neg()}, nil
}

func (u *UKStudentLoan) enterCredentials(page browser.Page, account ynabconnect.Account) error {
	if err := page.Type("input#userId", account.Email); err != nil {
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter email or password on UK Student Loan page")
	}
	if err := page.Type("input#password", account.Password); err != nil {
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter email or password on UK Student Loan page")
	}
	if err := page.Click(`//button[contains(., "Continue")]`); err != nil {
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter email or password on UK Student Loan page")
	}
	if err := page.Type("input#secretAnswer", account.SecretAnswer); err != nil {
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter secret answer on UK Student Loan page")
	}
	if err := page.Click(`//button[contains(., "Login to account")]`); err != nil {
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter secret answer on UK Student Loan page")
	}
	return nil
}
