// Package ldap implements the directory connector for LDAP/Active
// Directory. It owns every LDAP quirk: paged searches, ranged member
// attributes for groups beyond the server's member limit, and
// attribute decoding. The engine only sees raw records.
package ldap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// DefaultPageSize is the paged-search page size
const DefaultPageSize = 500

// Config holds the LDAP server settings
type Config struct {
	Address  string // ldap:// or ldaps:// URL
	BindDN   string
	Password string `masq:"secret"`
	BaseDN   string
	OU       string // organizational unit holding the sync groups
	PageSize uint32
}

// Validate checks if the Config is complete
func (c *Config) Validate() error {
	if c.Address == "" {
		return goerr.New("ldap address is required")
	}
	if c.BindDN == "" || c.Password == "" {
		return goerr.New("ldap bind credentials are required")
	}
	if c.BaseDN == "" {
		return goerr.New("ldap base DN is required")
	}
	return nil
}

// Connector is the LDAP directory connector
type Connector struct {
	cfg Config
}

var _ interfaces.Connector = &Connector{}

// New creates an LDAP connector
func New(cfg Config) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid ldap config")
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Connector{cfg: cfg}, nil
}

func (c *Connector) Kind() types.ConnectorKind {
	return types.ConnectorLDAP
}

// searchBase is the DN the sync groups live under
func (c *Connector) searchBase() string {
	if c.cfg.OU == "" {
		return c.cfg.BaseDN
	}
	return fmt.Sprintf("OU=%s,%s", c.cfg.OU, c.cfg.BaseDN)
}

func (c *Connector) connect() (*ldapv3.Conn, error) {
	conn, err := ldapv3.DialURL(c.cfg.Address)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to ldap server",
			goerr.V("address", c.cfg.Address))
	}
	if err := conn.Bind(c.cfg.BindDN, c.cfg.Password); err != nil {
		conn.Close()
		return nil, goerr.Wrap(err, "ldap bind failed", goerr.V("bind_dn", c.cfg.BindDN))
	}
	return conn, nil
}

// FetchGroups returns the CN of every group under the sync OU
func (c *Connector) FetchGroups(ctx context.Context) ([]string, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := ldapv3.NewSearchRequest(
		c.searchBase(),
		ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 0, 0, false,
		"(objectClass=group)",
		[]string{"cn"},
		nil,
	)

	res, err := conn.SearchWithPaging(req, c.cfg.PageSize)
	if err != nil {
		return nil, goerr.Wrap(err, "ldap group search failed",
			goerr.V("base", c.searchBase()))
	}

	var groups []string
	for _, entry := range res.Entries {
		if cn := entry.GetAttributeValue("cn"); cn != "" {
			groups = append(groups, cn)
		}
	}

	logging.From(ctx).Debug("LDAP group query finished", "groups", len(groups))
	return groups, nil
}

// FetchUsers resolves the members of the given groups and loads each
// member's user attributes.
func (c *Connector) FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	logger := logging.From(ctx)

	memberDNs := make(map[string]struct{})
	for _, group := range groups {
		dns, err := c.groupMembers(conn, group)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve group members",
				goerr.V("group", group))
		}
		for _, dn := range dns {
			memberDNs[dn] = struct{}{}
		}
	}
	logger.Debug("LDAP member query finished", "members", len(memberDNs))

	users := make([]model.RawUser, 0, len(memberDNs))
	for dn := range memberDNs {
		user, err := c.lookupUser(conn, dn)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load user entry", goerr.V("dn", dn))
		}
		if user != nil {
			users = append(users, *user)
		}
	}

	return users, nil
}

// groupMembers returns the member DNs of one group, following ranged
// member attributes (member;range=0-1499 and onward) when the group
// exceeds the server's attribute limit.
func (c *Connector) groupMembers(conn *ldapv3.Conn, group string) ([]string, error) {
	req := ldapv3.NewSearchRequest(
		c.searchBase(),
		ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(cn=%s)", ldapv3.EscapeFilter(group)),
		[]string{"member"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	entry := res.Entries[0]

	var members []string
	for _, attr := range entry.Attributes {
		name, lower, upper, ok := parseRangedAttr(attr.Name)
		if !ok {
			if attr.Name == "member" {
				members = append(members, attr.Values...)
			}
			continue
		}
		if name != "member" {
			continue
		}

		// Walk the ranges until the server answers with an open upper
		// bound, which marks the final page.
		members = append(members, attr.Values...)
		if upper < 0 {
			continue
		}
		step := upper - lower + 1
		for {
			lower = upper + 1
			upper += step
			next := fmt.Sprintf("member;range=%d-%d", lower, upper)
			pageReq := ldapv3.NewSearchRequest(
				entry.DN,
				ldapv3.ScopeBaseObject, ldapv3.NeverDerefAliases, 0, 0, false,
				"(objectClass=*)",
				[]string{next},
				nil,
			)
			pageRes, err := conn.Search(pageReq)
			if err != nil {
				return nil, err
			}
			if len(pageRes.Entries) == 0 {
				break
			}

			done := true
			for _, pageAttr := range pageRes.Entries[0].Attributes {
				if !strings.HasPrefix(pageAttr.Name, "member;range=") {
					continue
				}
				members = append(members, pageAttr.Values...)
				if !strings.HasSuffix(pageAttr.Name, "-*") {
					done = false
				}
			}
			if done {
				break
			}
		}
	}

	return members, nil
}

// lookupUser loads one user entry by DN and maps it to a raw record.
// Entries without a mail attribute are skipped; the engine cannot join
// them to anything.
func (c *Connector) lookupUser(conn *ldapv3.Conn, dn string) (*model.RawUser, error) {
	req := ldapv3.NewSearchRequest(
		dn,
		ldapv3.ScopeBaseObject, ldapv3.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)",
		[]string{"mail", "givenName", "sn", "memberOf", "company", "title", "mobile"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	entry := res.Entries[0]

	mail := entry.GetAttributeValue("mail")
	if mail == "" {
		return nil, nil
	}

	var groups []string
	for _, memberOf := range entry.GetAttributeValues("memberOf") {
		if cn := cnFromDN(memberOf); cn != "" {
			groups = append(groups, cn)
		}
	}

	return &model.RawUser{
		Email:     mail,
		FirstName: entry.GetAttributeValue("givenName"),
		LastName:  entry.GetAttributeValue("sn"),
		Groups:    groups,
		Company:   entry.GetAttributeValue("company"),
		Title:     entry.GetAttributeValue("title"),
		Phone:     entry.GetAttributeValue("mobile"),
	}, nil
}

// parseRangedAttr splits "member;range=0-1499" into its parts. The
// upper bound "*" (final page) parses as ok with upper = -1.
func parseRangedAttr(name string) (attr string, lower, upper int, ok bool) {
	attr, rangeStmt, found := strings.Cut(name, ";")
	if !found || !strings.HasPrefix(rangeStmt, "range=") {
		return "", 0, 0, false
	}
	bounds := strings.SplitN(strings.TrimPrefix(rangeStmt, "range="), "-", 2)
	if len(bounds) != 2 {
		return "", 0, 0, false
	}
	lower, err := strconv.Atoi(bounds[0])
	if err != nil {
		return "", 0, 0, false
	}
	if bounds[1] == "*" {
		return attr, lower, -1, true
	}
	upper, err = strconv.Atoi(bounds[1])
	if err != nil {
		return "", 0, 0, false
	}
	return attr, lower, upper, true
}

// cnFromDN extracts the CN from a DN like "CN=Sales,OU=Groups,DC=corp"
func cnFromDN(dn string) string {
	first, _, _ := strings.Cut(dn, ",")
	if rest, found := strings.CutPrefix(first, "CN="); found {
		return rest
	}
	return ""
}
