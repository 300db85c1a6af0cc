package quoting

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/bizobj"
)

// Customer is a policyholder or prospect.
type Customer struct {
	*bizobj.Entity
}

func NewCustomer(m *bizobj.Mapper) *Customer {
	return &Customer{m.New(Customers)}
}

func (c *Customer) Name() string  { return c.String("name") }
func (c *Customer) Email() string { return c.String("email") }
func (c *Customer) Phone() string { return c.String("phone") }

// TaxID returns the plaintext as set, or the stored hash after a fetch.
func (c *Customer) TaxID() string { return c.String("taxId") }

func (c *Customer) DateOfBirth() (time.Time, bool) { return c.Time("dateOfBirth") }
func (c *Customer) CreatedAt() (time.Time, bool)   { return c.Time("createdAt") }

func (c *Customer) SetName(v string) error  { return c.Set("name", v) }
func (c *Customer) SetEmail(v string) error { return c.Set("email", v) }
func (c *Customer) SetPhone(v string) error { return c.Set("phone", v) }

// Agency is a brokerage selling on behalf of one or more underwriters.
type Agency struct {
	*bizobj.Entity
}

func NewAgency(m *bizobj.Mapper) *Agency {
	return &Agency{m.New(Agencies)}
}

func (a *Agency) Name() string { return a.String("name") }
func (a *Agency) Code() string { return a.String("code") }
func (a *Agency) Active() bool { return a.Bool("active") }

func (a *Agency) SetActive(v bool) error { return a.Set("active", v) }

// Contacts returns the agency's contacts in save order.
func (a *Agency) Contacts() []*AgencyContact {
	children := a.Children("contacts")
	out := make([]*AgencyContact, len(children))
	for i, c := range children {
		out[i] = &AgencyContact{c}
	}
	return out
}

// AddContact appends a new, unsaved contact. Nothing is appended if the
// values are rejected.
func (a *Agency) AddContact(name, email string) (*AgencyContact, error) {
	c := &AgencyContact{a.Mapper().New(AgencyContacts)}
	if err := c.Set("name", name); err != nil {
		return nil, err
	}
	if email != "" {
		if err := c.Set("email", email); err != nil {
			return nil, err
		}
	}
	if err := a.AddChild("contacts", c.Entity); err != nil {
		return nil, err
	}
	return c, nil
}

// UnderwriterIDs returns the linked underwriter ids.
func (a *Agency) UnderwriterIDs() []int64 {
	ids, _ := toIDs(a.Value("underwriterIds"))
	return ids
}

// SetUnderwriterIDs replaces the underwriter links written on the next save.
func (a *Agency) SetUnderwriterIDs(ids []int64) error {
	return a.Set("underwriterIds", ids)
}

// LoadUnderwriterIDs reads the agency's underwriter links. The links are not
// part of the agency row, so GetByID does not fetch them.
func (a *Agency) LoadUnderwriterIDs(ctx context.Context) error {
	ids, err := agencyUnderwriterIDs(ctx, a.Mapper().Client(), a.ID())
	if err != nil {
		return fmt.Errorf("failed to load underwriters of agency %d: %w", a.ID(), err)
	}
	return a.Set("underwriterIds", ids)
}

// AgencyContact is a person reachable at an agency.
type AgencyContact struct {
	*bizobj.Entity
}

func (c *AgencyContact) AgencyID() int64 { return c.Int("agencyId") }
func (c *AgencyContact) Name() string    { return c.String("name") }
func (c *AgencyContact) Email() string   { return c.String("email") }
func (c *AgencyContact) IsPrimary() bool { return c.Bool("isPrimary") }

func (c *AgencyContact) SetPrimary(v bool) error { return c.Set("isPrimary", v) }

// Underwriter is a carrier writing policies through agencies.
type Underwriter struct {
	*bizobj.Entity
}

func NewUnderwriter(m *bizobj.Mapper) *Underwriter {
	return &Underwriter{m.New(Underwriters)}
}

func (u *Underwriter) Name() string     { return u.String("name") }
func (u *Underwriter) NAICCode() string { return u.String("naicCode") }

func (u *Underwriter) LicensedAt() (time.Time, bool) { return u.Time("licensedAt") }
