// controller/access_test.go
package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

func TestAccessControl(t *testing.T) {
	f := newFixture(t)

	acp := f.mustCreate(t, f.base.ResourceID, model.TypeAccessControlPolicy, &model.Resource{
		Name:           "acpReader",
		Privileges:     []model.AccessControlRule{{Originators: []string{"Creader"}, Operations: model.MaskRetrieve}},
		SelfPrivileges: []model.AccessControlRule{{Originators: []string{admin}, Operations: model.MaskAll}},
	})
	data := f.mustCreate(t, f.base.ResourceID, model.TypeContainer, &model.Resource{
		Name:                   "data",
		AccessControlPolicyIDs: []string{"in-name/acpReader"},
	})
	require.Equal(t, []string{acp.ResourceID}, data.AccessControlPolicyIDs)

	t.Run("Retrieve_Granted", func(t *testing.T) {
		resp, err := f.retrieve("Creader", data.ResourceID, "", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "data", resp.Content.Name)
	})

	t.Run("Operations_NotGranted", func(t *testing.T) {
		_, err := f.update("Creader", data.ResourceID, &model.Resource{Labels: []string{"x"}})
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
		assert.Equal(t, model.StatusOriginatorHasNoPrivilege, echo_errors.StatusFor(err))

		_, err = f.delete("Creader", data.ResourceID)
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)

		_, err = f.create("Creader", data.ResourceID, model.TypeContainer, &model.Resource{Name: "child"})
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
	})

	t.Run("Stranger_DeniedEverything", func(t *testing.T) {
		_, err := f.retrieve("Cstranger", data.ResourceID, "", 0, 0)
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
		_, err = f.update("Cstranger", data.ResourceID, &model.Resource{Labels: []string{"x"}})
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
		_, err = f.delete("Cstranger", data.ResourceID)
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
	})

	t.Run("Policy_GovernedBySelfPrivileges", func(t *testing.T) {
		_, err := f.retrieve("Creader", acp.ResourceID, "", 0, 0)
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)

		resp, err := f.update(admin, acp.ResourceID, &model.Resource{
			Privileges: []model.AccessControlRule{{Originators: []string{"Creader"}, Operations: model.MaskRetrieve | model.MaskUpdate}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusUpdated, resp.StatusCode)

		_, err = f.update("Creader", data.ResourceID, &model.Resource{Labels: []string{"x"}})
		assert.NoError(t, err, "policy changes apply to the next decision")
	})

	t.Run("Registration_Wildcard", func(t *testing.T) {
		resp, err := f.create("Calice", f.base.ResourceID, model.TypeAE, &model.Resource{Name: "alice", AppID: "Nalice"})
		require.NoError(t, err)
		aliceAE := resp.Content

		_, err = f.retrieve("Calice", aliceAE.ResourceID, "", 0, 0)
		assert.NoError(t, err)
		_, err = f.update("Calice", aliceAE.ResourceID, &model.Resource{Labels: []string{"x"}})
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
		_, err = f.create("Sbob", f.base.ResourceID, model.TypeAE, &model.Resource{Name: "bob", AppID: "Nbob"})
		assert.ErrorIs(t, err, echo_errors.ErrForbidden)
	})

	t.Run("Denial_Published", func(t *testing.T) {
		denied := make(chan util.ResourceEvent, 1)
		f.bus.Subscribe(util.EventAccessDenied, func(ctx context.Context, event util.Event) error {
			select {
			case denied <- event.Payload.(util.ResourceEvent):
			default:
			}
			return nil
		})
		_, err := f.delete("Cmallory", data.ResourceID)
		require.ErrorIs(t, err, echo_errors.ErrForbidden)
		f.bus.Wait()

		event := <-denied
		assert.Equal(t, "Cmallory", event.Originator)
		assert.Equal(t, data.ResourceID, event.ResourceID)
		assert.Equal(t, model.OperationDelete.String(), event.Operation)
	})

	t.Run("Reference_WrongType", func(t *testing.T) {
		_, err := f.create(admin, f.base.ResourceID, model.TypeContainer, &model.Resource{
			Name:                   "bad",
			AccessControlPolicyIDs: []string{data.ResourceID},
		})
		assert.ErrorIs(t, err, echo_errors.ErrConflict)
	})
}

func TestDynamicAuthorizationLinks(t *testing.T) {
	f := newFixture(t)

	dac := f.mustCreate(t, f.base.ResourceID, model.TypeDAC, &model.Resource{
		Name:                        "dac1",
		DynamicAuthorizationEnabled: boolPtr(false),
	})
	guarded := f.mustCreate(t, f.base.ResourceID, model.TypeContainer, &model.Resource{
		Name:                                "guarded",
		DynamicAuthorizationConsultationIDs: []string{dac.ResourceID},
	})

	t.Run("Retrieve_LinkedResources", func(t *testing.T) {
		resp, err := f.retrieve(admin, dac.ResourceID, "", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{guarded.ResourceID}, resp.Content.LinkedResourceIDs)
	})

	t.Run("Create_EnabledWithoutPoA", func(t *testing.T) {
		_, err := f.create(admin, f.base.ResourceID, model.TypeDAC, &model.Resource{
			Name:                        "dac2",
			DynamicAuthorizationEnabled: boolPtr(true),
		})
		assert.ErrorIs(t, err, echo_errors.ErrBadRequest)
	})

	t.Run("Reference_WrongType", func(t *testing.T) {
		_, err := f.create(admin, f.base.ResourceID, model.TypeContainer, &model.Resource{
			Name:                                "bad",
			DynamicAuthorizationConsultationIDs: []string{guarded.ResourceID},
		})
		assert.ErrorIs(t, err, echo_errors.ErrConflict)
	})

	t.Run("Delete_SeversReferences", func(t *testing.T) {
		_, err := f.delete(admin, dac.ResourceID)
		require.NoError(t, err)

		resp, err := f.retrieve(admin, guarded.ResourceID, "", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, resp.Content.DynamicAuthorizationConsultationIDs)
	})
}
