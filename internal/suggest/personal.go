package suggest

import "github.com/ppiankov/tradeline/internal/model"

// PreviousAddressReason is the fixed reason for a disputed previous address
const PreviousAddressReason = "This address is wrong or outdated"

// PreviousAddressInstruction is the fixed instruction for a disputed previous address
const PreviousAddressInstruction = "Please remove this address from my credit file as I have never lived at it or no longer live there."

// personalDefaults are filled in as soon as a personal-information item is
// selected, without going through the suggestion table
var personalDefaults = map[model.PersonalField]model.Suggestion{
	model.PersonalName: {
		Title:       "Name",
		Reason:      "This name is misspelled or is not a name I have used",
		Instruction: "Please update my credit file to show only my correct legal name.",
	},
	model.PersonalAlias: {
		Title:       "Alias",
		Reason:      "I have never used this name",
		Instruction: "Please remove this name variation from my credit file.",
	},
	model.PersonalCurrentAddress: {
		Title:       "Current address",
		Reason:      "This is not my current address",
		Instruction: "Please correct my current address in my credit file.",
	},
	model.PersonalPreviousAddress: {
		Title:       "Previous address",
		Reason:      PreviousAddressReason,
		Instruction: PreviousAddressInstruction,
	},
	model.PersonalBirthDate: {
		Title:       "Date of birth",
		Reason:      "This date of birth is incorrect",
		Instruction: "Please correct my date of birth in my credit file.",
	},
	model.PersonalEmployer: {
		Title:       "Employer",
		Reason:      "I have never worked for this employer or this employment is outdated",
		Instruction: "Please remove this employer from my credit file.",
	},
}

// PersonalDefault returns the fixed reason/instruction pair for a personal field
func PersonalDefault(field model.PersonalField) (model.Suggestion, bool) {
	s, ok := personalDefaults[field]
	return s, ok
}
