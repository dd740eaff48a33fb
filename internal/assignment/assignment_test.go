package assignment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/assignment"
	"github.com/iliassehm/conformity/internal/domain"
)

func batch() domain.Batch {
	return domain.Batch{
		domain.NewDocument(domain.UploadedFrom("mandate.pdf"), "mandate.pdf", "kyc", []byte("a")),
		domain.NewDocument(domain.UploadedFrom("id.pdf"), "id.pdf", "kyc", []byte("b")),
	}
}

var manager = domain.Signer{DisplayName: "J. Martin", Role: domain.SignerManager}

func TestSetDigitalAction(t *testing.T) {
	b := batch()

	t.Run("on adds the default customer signer", func(t *testing.T) {
		out, err := assignment.SetDigitalAction(b, b[0].ID, true)
		require.NoError(t, err)
		assert.True(t, out[0].DigitalAction)
		assert.Equal(t, []domain.Signer{{Role: domain.SignerCustomer}}, out[0].Signers)
		assert.False(t, b[0].DigitalAction, "input untouched")
		require.NoError(t, out.Validate())
	})

	t.Run("on keeps existing signers", func(t *testing.T) {
		withManager, err := assignment.AddSigner(b, b[0].ID, manager)
		require.NoError(t, err)
		out, err := assignment.SetDigitalAction(withManager, b[0].ID, true)
		require.NoError(t, err)
		assert.Equal(t, []domain.Signer{manager}, out[0].Signers)
	})

	t.Run("off clears signers", func(t *testing.T) {
		on, err := assignment.SetDigitalAction(b, b[1].ID, true)
		require.NoError(t, err)
		off, err := assignment.SetDigitalAction(on, b[1].ID, false)
		require.NoError(t, err)
		assert.False(t, off[1].DigitalAction)
		assert.Empty(t, off[1].Signers)
		require.NoError(t, off.Validate())
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := assignment.SetDigitalAction(b, "nope", true)
		require.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})
}

func TestSigners(t *testing.T) {
	b := batch()

	two, err := assignment.AddSigner(b, b[0].ID, manager)
	require.NoError(t, err)
	two, err = assignment.AddSigner(two, b[0].ID, domain.Signer{Role: domain.SignerCustomer})
	require.NoError(t, err)
	assert.True(t, two[0].DigitalAction)
	assert.Len(t, two[0].Signers, 2)

	one, err := assignment.RemoveSigner(two, b[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.Signer{{Role: domain.SignerCustomer}}, one[0].Signers)
	assert.True(t, one[0].DigitalAction)
	assert.Len(t, two[0].Signers, 2, "earlier batch untouched")

	none, err := assignment.RemoveSigner(one, b[0].ID, 0)
	require.NoError(t, err)
	assert.False(t, none[0].DigitalAction, "removing the last signer clears the flag")
	assert.Empty(t, none[0].Signers)

	_, err = assignment.RemoveSigner(none, b[0].ID, 0)
	require.ErrorIs(t, err, assignment.ErrSignerIndex)

	_, err = assignment.AddSigner(b, b[0].ID, domain.Signer{Role: "notary"})
	require.ErrorIs(t, err, assignment.ErrInvalidSigner)
}

func TestRename(t *testing.T) {
	b := batch()

	out, err := assignment.Rename(b, b[0].ID, "  Signed mandate ")
	require.NoError(t, err)
	assert.Equal(t, "Signed mandate", out[0].Name)

	_, err = assignment.Rename(b, b[0].ID, "id")
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	same, err := assignment.Rename(b, b[0].ID, "mandate")
	require.NoError(t, err, "keeping its own name is allowed")
	assert.Equal(t, "mandate", same[0].Name)

	_, err = assignment.Rename(b, b[0].ID, "   ")
	require.ErrorIs(t, err, assignment.ErrEmptyName)
}

func TestApply(t *testing.T) {
	b := batch()

	t.Run("applies edits in order", func(t *testing.T) {
		out, err := assignment.Apply(b,
			assignment.Edit{DocumentID: b[0].ID, Op: assignment.OpAddSigner, Signer: &manager},
			assignment.Edit{DocumentID: b[0].ID, Op: assignment.OpCategory, Category: "mandates"},
			assignment.Edit{DocumentID: b[1].ID, Op: assignment.OpDigitalAction, DigitalAction: true},
			assignment.Edit{DocumentID: b[1].ID, Op: assignment.OpRename, Name: "Identity"},
		)
		require.NoError(t, err)
		assert.Equal(t, "mandates", out[0].Category)
		assert.Equal(t, []domain.Signer{manager}, out[0].Signers)
		assert.Equal(t, "Identity", out[1].Name)
		assert.True(t, out.HasSignatories())
	})

	t.Run("a failing edit leaves the batch untouched", func(t *testing.T) {
		out, err := assignment.Apply(b,
			assignment.Edit{DocumentID: b[0].ID, Op: assignment.OpCategory, Category: "changed"},
			assignment.Edit{DocumentID: b[1].ID, Op: assignment.OpRename, Name: "mandate"},
		)
		require.ErrorIs(t, err, domain.ErrDuplicateName)
		assert.Equal(t, b, out)
	})

	t.Run("add signer requires a signer", func(t *testing.T) {
		_, err := assignment.Apply(b, assignment.Edit{DocumentID: b[0].ID, Op: assignment.OpAddSigner})
		require.ErrorIs(t, err, assignment.ErrUnknownEdit)
	})

	t.Run("unknown op", func(t *testing.T) {
		_, err := assignment.Apply(b, assignment.Edit{DocumentID: b[0].ID, Op: "archive"})
		require.ErrorIs(t, err, assignment.ErrUnknownEdit)
	})
}

func TestSignAll(t *testing.T) {
	b := batch()
	signed, err := assignment.AddSigner(b, b[1].ID, manager)
	require.NoError(t, err)

	out, err := assignment.SignAll(signed, domain.DefaultSigner())
	require.NoError(t, err)
	assert.Equal(t, []domain.Signer{domain.DefaultSigner()}, out[0].Signers)
	assert.Equal(t, []domain.Signer{manager}, out[1].Signers)
	require.NoError(t, out.Validate())
}
