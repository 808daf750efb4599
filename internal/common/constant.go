// Package common contains shared constants and sentinel errors used across
// the rashdrive web server and CLI.
package common

// RolePolice is the role claim that unlocks the review dashboard.
const RolePolice = "police"

// RoleCitizen is stamped into the profile metadata of self-registered accounts.
const RoleCitizen = "citizen"

// MediaBucket is the object-storage bucket complaint media is uploaded to.
const MediaBucket = "complaint-media"

// ComplaintsTable is the relation complaint records live in.
const ComplaintsTable = "complaints"

// VisitorCookieName identifies a browser visitor on the web front-end.
const VisitorCookieName = "rd_visitor"
