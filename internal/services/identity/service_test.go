package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcrypt/internal/protocol/x3dh"
	"msgcrypt/internal/services/identity"
)

func TestRegisterUser_BundleIsComplete(t *testing.T) {
	svc := identity.New(nil)

	bundle, err := svc.RegisterUser("alice", 3)
	require.NoError(t, err)

	assert.Equal(t, "alice", bundle.UserID)
	assert.NotEmpty(t, bundle.SignedPrekey.ID)
	assert.True(t, x3dh.VerifySPK(bundle.SigningKey, bundle.SignedPrekey.Pub, bundle.SignedPrekey.Sig),
		"signed prekey signature must verify against the identity signing key")
	assert.Len(t, bundle.OneTime, 1, "registration bundle carries one issued one-time prekey")
}

func TestRegisterUser_ReplacesPreviousRegistration(t *testing.T) {
	svc := identity.New(nil)

	first, err := svc.RegisterUser("alice", 1)
	require.NoError(t, err)
	second, err := svc.RegisterUser("alice", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.IdentityKey, second.IdentityKey, "re-registration must rotate identity material")
	assert.NotEqual(t, first.OneTime[0].ID, second.OneTime[0].ID,
		"a new registration must not mint a key under an old prekey id")

	// The old one-time prekeys are gone with the old registration.
	_, ok, err := svc.ConsumeOneTimePrekey("alice", first.OneTime[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetIdentityBundle_IssuesEachPrekeyOnce(t *testing.T) {
	svc := identity.New(nil)
	_, err := svc.RegisterUser("bob", 2)
	require.NoError(t, err)

	seen := make(map[string]bool)
	// Registration issues one; two more fetches drain the pool.
	for i := 0; i < 2; i++ {
		bundle, ok, err := svc.GetIdentityBundle("bob")
		require.NoError(t, err)
		require.True(t, ok)
		if len(bundle.OneTime) == 1 {
			id := bundle.OneTime[0].ID
			assert.False(t, seen[id], "one-time prekey %s issued twice", id)
			seen[id] = true
		}
	}

	// Pool exhausted: bundles still serve, without a one-time prekey.
	bundle, ok, err := svc.GetIdentityBundle("bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, bundle.OneTime)
}

func TestGetIdentityBundle_UnknownUser(t *testing.T) {
	svc := identity.New(nil)
	_, ok, err := svc.GetIdentityBundle("nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeOneTimePrekey_ExactlyOnce(t *testing.T) {
	svc := identity.New(nil)
	bundle, err := svc.RegisterUser("bob", 1)
	require.NoError(t, err)
	require.Len(t, bundle.OneTime, 1)
	id := bundle.OneTime[0].ID

	priv, ok, err := svc.ConsumeOneTimePrekey("bob", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, [32]byte{}, [32]byte(priv))

	// Second claim of the same prekey must fail.
	_, ok, err = svc.ConsumeOneTimePrekey("bob", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplenishPrekeys_RotatesSignedPrekey(t *testing.T) {
	svc := identity.New(nil)
	before, err := svc.RegisterUser("carol", 0)
	require.NoError(t, err)

	require.NoError(t, svc.ReplenishPrekeys("carol", 2))

	after, ok, err := svc.GetIdentityBundle("carol")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, before.SignedPrekey.ID, after.SignedPrekey.ID)
	assert.Equal(t, before.IdentityKey, after.IdentityKey, "replenish must not rotate the identity")
	assert.Len(t, after.OneTime, 1)

	assert.Error(t, svc.ReplenishPrekeys("nobody", 1))
}

func TestSignedPrekeyPriv(t *testing.T) {
	svc := identity.New(nil)
	bundle, err := svc.RegisterUser("dave", 0)
	require.NoError(t, err)

	_, ok := svc.SignedPrekeyPriv("dave", bundle.SignedPrekey.ID)
	assert.True(t, ok)
	_, ok = svc.SignedPrekeyPriv("dave", "spk-stale")
	assert.False(t, ok)
	_, ok = svc.SignedPrekeyPriv("nobody", bundle.SignedPrekey.ID)
	assert.False(t, ok)
}
