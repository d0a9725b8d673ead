package application

import (
	"fmt"
	"strings"
)

// Action names an operation checked by the access policy.
type Action string

const (
	ActionRead       Action = "read"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionProcess    Action = "process"
	ActionAdminister Action = "administer"
)

// Allow evaluates the role-then-ownership rule. Rules are applied in order:
// no principal denies, the manager role allows everything, otherwise the
// principal must own the resource.
func Allow(principal *Principal, action Action, ownerID string) bool {
	if principal == nil || principal.UserID == "" {
		return false
	}
	if principal.IsManager() {
		return true
	}
	switch action {
	case ActionProcess, ActionAdminister:
		return false
	}
	return ownerID != "" && principal.UserID == ownerID
}

// CanSeeName reports whether viewer may see the name of subjectID.
func CanSeeName(viewer *Principal, subjectID string) bool {
	return Allow(viewer, ActionRead, subjectID)
}

// CanViewRequest reports whether the principal may read the request.
func CanViewRequest(principal *Principal, req Request) bool {
	return Allow(principal, ActionRead, req.UserID) || Allow(principal, ActionRead, req.RequestedBy)
}

// CanDeleteRequest reports whether the principal may delete the request.
// Processed requests are frozen for every caller.
func CanDeleteRequest(principal *Principal, req Request) bool {
	if req.Processed() {
		return false
	}
	return Allow(principal, ActionDelete, req.UserID) || Allow(principal, ActionDelete, req.RequestedBy)
}

// OnBehalfPolicy controls who may file a request whose subject is another user.
type OnBehalfPolicy string

const (
	// OnBehalfAny lets every authenticated user file for any subject.
	OnBehalfAny OnBehalfPolicy = "any"
	// OnBehalfSelf restricts filing to the principal's own requests.
	OnBehalfSelf OnBehalfPolicy = "self"
	// OnBehalfManager lets only managers file for someone else.
	OnBehalfManager OnBehalfPolicy = "manager"
)

// ParseOnBehalfPolicy parses a configured policy name.
func ParseOnBehalfPolicy(value string) (OnBehalfPolicy, error) {
	switch p := OnBehalfPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case OnBehalfAny, OnBehalfSelf, OnBehalfManager:
		return p, nil
	case "":
		return OnBehalfAny, nil
	default:
		return "", fmt.Errorf("unknown on-behalf policy %q", value)
	}
}

// CanFileRequest reports whether the principal may file a request for subjectID.
func CanFileRequest(principal *Principal, subjectID string, policy OnBehalfPolicy) bool {
	if principal == nil || principal.UserID == "" {
		return false
	}
	if subjectID == principal.UserID {
		return true
	}
	switch policy {
	case OnBehalfSelf:
		return false
	case OnBehalfManager:
		return principal.IsManager()
	default:
		return true
	}
}
