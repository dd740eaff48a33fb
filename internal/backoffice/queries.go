package backoffice

const materializeFromTemplateQuery = `
mutation materializeFromTemplate($customerId: ID!, $templates: [TemplateInput!]!) {
  materializeFromTemplate(customerId: $customerId, templates: $templates) {
    url
    name
    extension
    category
  }
}`

const materializeFromGedQuery = `
mutation materializeFromGed($customerId: ID!, $documents: [GedDocumentInput!]!) {
  materializeFromGed(customerId: $customerId, documents: $documents) {
    url
    name
    extension
    category
  }
}`

const convertToPdfQuery = `
mutation convertToPdf($url: String!, $name: String!) {
  convertToPdf(url: $url, name: $name) {
    url
  }
}`

const issueUploadTargetsQuery = `
mutation issueUploadTargets($files: [FileDescriptorInput!]!) {
  issueUploadTargets(files: $files) {
    uploadUrl
    publicUrl
    name
  }
}`

const createEnvelopeQuery = `
mutation createEnvelope($input: EnvelopeInput!) {
  createEnvelope(input: $input) {
    id
    name
  }
}`

const linkCampaignQuery = `
mutation linkCampaign($envelopeId: ID!, $campaignId: ID!) {
  linkCampaign(envelopeId: $envelopeId, campaignId: $campaignId) {
    id
  }
}`

const notifyDocumentStatusQuery = `
mutation notifyDocumentStatus($documentId: ID!, $transports: [NotificationInput!]!) {
  notifyDocumentStatus(documentId: $documentId, transports: $transports) {
    ok
  }
}`

const uploadDocumentQuery = `
mutation uploadDocument($name: String!, $mimeType: String!, $content: String!) {
  uploadDocument(name: $name, mimeType: $mimeType, content: $content) {
    url
  }
}`
