// Package quoting defines the relational business objects of the quoting
// back office on top of bizobj.
package quoting

import (
	"github.com/tordrt/bizobj"
)

const (
	emailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`
	phonePattern = `^\+?[0-9 ()-]{7,20}$`
	codePattern  = `^[A-Z0-9]{3,12}$`
	naicPattern  = `^[0-9]{5}$`
)

var (
	// AgencyContacts are the people reachable at an agency. Rows are owned by
	// their agency and written by its save cascade.
	AgencyContacts = bizobj.MustSchema("agency_contacts",
		bizobj.Property{Name: "agencyId", Type: bizobj.TypeNumber},
		bizobj.Property{Name: "name", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.NotBlank(), bizobj.MaxLength(200)}},
		bizobj.Property{Name: "email", Type: bizobj.TypeString, Encrypted: true, Rules: []bizobj.Rule{bizobj.Matches(emailPattern)}},
		bizobj.Property{Name: "isPrimary", Type: bizobj.TypeBoolean, Default: false},
	)

	Customers = bizobj.MustSchema("customers",
		bizobj.Property{Name: "name", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.NotBlank(), bizobj.MaxLength(200)}},
		bizobj.Property{Name: "email", Type: bizobj.TypeString, Required: true, Encrypted: true, Rules: []bizobj.Rule{bizobj.Matches(emailPattern)}},
		bizobj.Property{Name: "phone", Type: bizobj.TypeString, Rules: []bizobj.Rule{bizobj.Matches(phonePattern)}},
		bizobj.Property{Name: "taxId", Type: bizobj.TypeString, Hashed: true},
		bizobj.Property{Name: "dateOfBirth", Type: bizobj.TypeDate},
		bizobj.Property{Name: "notes", Type: bizobj.TypeJSON},
		bizobj.Property{Name: "createdAt", Type: bizobj.TypeDatetime},
	)

	Agencies = bizobj.MustSchema("agencies",
		bizobj.Property{Name: "name", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.NotBlank(), bizobj.MaxLength(200)}},
		bizobj.Property{Name: "code", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.Matches(codePattern)}},
		bizobj.Property{Name: "active", Type: bizobj.TypeBoolean, Default: true},
		bizobj.Property{Name: "contacts", Type: bizobj.TypeObject, Class: AgencyContacts, AssociatedField: "agencyId"},
		bizobj.Property{Name: "underwriterIds", Type: bizobj.TypeObject, Rules: []bizobj.Rule{validIDs}, SaveHandler: saveAgencyUnderwriters},
	)

	Underwriters = bizobj.MustSchema("underwriters",
		bizobj.Property{Name: "name", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.NotBlank()}},
		bizobj.Property{Name: "naicCode", Type: bizobj.TypeString, Required: true, Rules: []bizobj.Rule{bizobj.Matches(naicPattern)}},
		bizobj.Property{Name: "lines", Type: bizobj.TypeJSON},
		bizobj.Property{Name: "licensedAt", Type: bizobj.TypeDate},
	)
)

func validIDs(v any) bool {
	_, err := toIDs(v)
	return err == nil
}

// Schemas lists every quoting schema, parents before children.
func Schemas() []*bizobj.Schema {
	return []*bizobj.Schema{Customers, Agencies, AgencyContacts, Underwriters}
}
