package domain

// DocumentFields holds the structured identity fields parsed from OCR text.
// An empty string means the field could not be extracted; all fields are
// optional by contract.
type DocumentFields struct {
	Name           string `json:"name,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	Address        string `json:"address,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
}

// FieldNames lists the field labels in report order.
var FieldNames = []string{
	"Name",
	"Document Number",
	"Date Of Birth",
	"Issue Date",
	"Address",
	"Nationality",
}

func (f DocumentFields) byName(name string) string {
	switch name {
	case "Name":
		return f.Name
	case "Document Number":
		return f.DocumentNumber
	case "Date Of Birth":
		return f.DateOfBirth
	case "Issue Date":
		return f.IssueDate
	case "Address":
		return f.Address
	case "Nationality":
		return f.Nationality
	}
	return ""
}

// Get returns the value of a field by its report label, empty when absent.
func (f DocumentFields) Get(name string) string {
	return f.byName(name)
}

// Missing returns the labels of fields that could not be extracted.
func (f DocumentFields) Missing() []string {
	var missing []string
	for _, name := range FieldNames {
		if f.byName(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
