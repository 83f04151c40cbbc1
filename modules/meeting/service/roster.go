package service

import (
	"strings"

	"echoloom-api/core/errors"
	"echoloom-api/core/utils"
	"echoloom-api/modules/meeting/dto"
	"echoloom-api/modules/meeting/entity"
)

// rosterDiff is the outcome of a replace-on-edit roster change. The host is
// never part of a diff; only invited participants move in and out.
type rosterDiff struct {
	added   []dto.InviteeDTO
	removed []entity.Participant
	kept    []entity.Participant
}

// sanitizeInvitees validates the untrusted invitee payload into a clean,
// de-duplicated list. Any malformed email rejects the whole request.
func sanitizeInvitees(invitees []dto.InviteeDTO) ([]dto.InviteeDTO, *errors.AppError) {
	seen := make(map[string]struct{}, len(invitees))
	out := make([]dto.InviteeDTO, 0, len(invitees))

	for _, inv := range invitees {
		email := strings.TrimSpace(inv.Email)
		if !utils.IsValidEmail(email) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid participant email: "+inv.Email, nil)
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		name := strings.TrimSpace(inv.Name)
		if name == "" {
			name = email
		}
		out = append(out, dto.InviteeDTO{Email: email, Name: name})
	}

	return out, nil
}

// diffRoster computes the replace-on-edit set difference between the current
// roster and the desired invitee list. Email comparison is exact
// (case-sensitive), matching how emails are stored.
func diffRoster(current []entity.Participant, desired []dto.InviteeDTO, hostEmail string) rosterDiff {
	desiredByEmail := make(map[string]dto.InviteeDTO, len(desired))
	for _, inv := range desired {
		if inv.Email == hostEmail {
			continue
		}
		desiredByEmail[inv.Email] = inv
	}

	currentByEmail := make(map[string]struct{}, len(current))
	var diff rosterDiff

	for _, p := range current {
		if p.Email == hostEmail {
			continue
		}
		currentByEmail[p.Email] = struct{}{}
		if _, wanted := desiredByEmail[p.Email]; wanted {
			diff.kept = append(diff.kept, p)
		} else {
			diff.removed = append(diff.removed, p)
		}
	}

	for _, inv := range desired {
		if inv.Email == hostEmail {
			continue
		}
		if _, present := currentByEmail[inv.Email]; !present {
			diff.added = append(diff.added, inv)
		}
	}

	return diff
}
