// controller/attributes.go
package controller

import (
	"reflect"

	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// Short names of the attributes only the server may set
var serverOnly = map[string]bool{
	"ri": true, "pi": true, "ty": true, "ct": true, "lt": true, "hr": true,
	"cr": true, "anncCopies": true, "lri": true, "ch": true, "children": true,
}

// presentAttributes lists the short names of every attribute set in r
func presentAttributes(r *model.Resource) []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(r.ResourceID != "", "ri")
	add(r.ParentID != "", "pi")
	add(r.Name != "", "rn")
	add(r.HierarchicalURI != "", "hr")
	add(!r.CreationTime.IsZero(), "ct")
	add(!r.LastModifiedTime.IsZero(), "lt")
	add(r.ExpirationTime != nil, "et")
	add(r.Labels != nil, "lbl")
	add(r.Creator != "", "cr")
	add(r.AccessControlPolicyIDs != nil, "acpi")
	add(r.DynamicAuthorizationConsultationIDs != nil, "daci")
	add(r.AnnounceTo != nil, "at")
	add(r.AnnouncedAttribute != nil, "aa")
	add(r.AnnouncedCopies != nil, "anncCopies")
	add(r.Link != "", "lnk")
	add(r.AppID != "", "api")
	add(r.ContainerDefinition != "", "cnd")
	add(r.OntologyRef != "", "or")
	add(r.NodeLink != "", "nl")
	add(r.CustomAttributes != nil, "ca")
	add(r.Privileges != nil, "pv")
	add(r.SelfPrivileges != nil, "pvs")
	add(r.NotificationURIs != nil, "nu")
	add(r.EventTypes != nil, "net")
	add(r.NotificationContentType != 0, "nct")
	add(r.SubscriberURI != "", "su")
	add(r.DynamicAuthorizationEnabled != nil, "dae")
	add(r.DynamicAuthorizationPoA != nil, "dap")
	add(r.DynamicAuthorizationLifetime != nil, "dal")
	add(r.LinkedResourceIDs != nil, "lri")
	add(r.Children != nil, "ch")
	add(r.ChildResources != nil, "children")
	return names
}

// copyAttribute copies one client-settable attribute from src to dst.
// Custom attributes are merged by the caller.
func copyAttribute(dst, src *model.Resource, name string) {
	c := src.Clone()
	switch name {
	case "rn":
		dst.Name = c.Name
	case "et":
		dst.ExpirationTime = c.ExpirationTime
	case "lbl":
		dst.Labels = c.Labels
	case "acpi":
		dst.AccessControlPolicyIDs = c.AccessControlPolicyIDs
	case "daci":
		dst.DynamicAuthorizationConsultationIDs = c.DynamicAuthorizationConsultationIDs
	case "at":
		dst.AnnounceTo = c.AnnounceTo
	case "aa":
		dst.AnnouncedAttribute = c.AnnouncedAttribute
	case "lnk":
		dst.Link = c.Link
	case "api":
		dst.AppID = c.AppID
	case "cnd":
		dst.ContainerDefinition = c.ContainerDefinition
	case "or":
		dst.OntologyRef = c.OntologyRef
	case "nl":
		dst.NodeLink = c.NodeLink
	case "ca":
		dst.CustomAttributes = c.CustomAttributes
	case "pv":
		dst.Privileges = c.Privileges
	case "pvs":
		dst.SelfPrivileges = c.SelfPrivileges
	case "nu":
		dst.NotificationURIs = c.NotificationURIs
	case "net":
		dst.EventTypes = c.EventTypes
	case "nct":
		dst.NotificationContentType = c.NotificationContentType
	case "su":
		dst.SubscriberURI = c.SubscriberURI
	case "dae":
		dst.DynamicAuthorizationEnabled = c.DynamicAuthorizationEnabled
	case "dap":
		dst.DynamicAuthorizationPoA = c.DynamicAuthorizationPoA
	case "dal":
		dst.DynamicAuthorizationLifetime = c.DynamicAuthorizationLifetime
	}
}

// sameAttribute reports whether a and b hold the same value for name
func sameAttribute(a, b *model.Resource, name string) bool {
	x, y := &model.Resource{}, &model.Resource{}
	copyAttribute(x, a, name)
	copyAttribute(y, b, name)
	return reflect.DeepEqual(x, y)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
